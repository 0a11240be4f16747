/*
Package domain contains the core data model shared by every Surface component.

It defines what travels between a workflow node, the server-side publisher and
the client-side history. The package is kept free of I/O and transport concerns,
following the same Hexagonal Architecture split used by the adapters.

# Key Entities

  - Component: one rendered instance, identified on screen by its MountKey (chatId, nodeId).
  - AssistantResponse: a turn. Owns an ordered list of components and its own StreamingState.
  - UserMessage: an immutable outbound message carrying the chat id used for correlation.
  - Entry: tagged variant over UserMessage and AssistantResponse, the unit of History.
  - InitMessage / DataMessage: the two wire shapes a mount key can receive.
  - MountRegistry: per-connection set of mount keys already initialized on the client.
  - FocusState: the single-slot expanded-component override.
*/
package domain
