/*
Package ports defines the driven ports (interfaces) of Surface.

These interfaces decouple the publishing core from transports and storage, so the
same publisher and session logic runs behind a websocket, an MCP server or a test
double.

# Key Interfaces

  - Connection: a live client connection with its mount registry and a Send method.
  - ConnectionRegistry: resolves (userId, conversationId) to a Connection.
  - SnapshotStore: keeps conversation snapshots so reconnecting clients can resume.
  - DistributedLocker: serializes per-connection handlers across replicas.
  - TriggerDispatcher: hands routed user messages to the workflow orchestrator.
*/
package ports
