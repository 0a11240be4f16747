/*
Package surface streams independently evolving UI components from a workflow engine to a chat-style client.

A workflow node publishes a component (a type, a componentUrl and a props map) for a
conversation. Surface decides whether the client has already mounted that slot and
sends either a full COMPONENT_INIT or an incremental COMPONENT_DATA over the live
connection. The client folds those frames into a per-turn history, reveals text
progressively and lets the user focus a single interactive component, which then
receives the next user message.

# Concept

Every rendered instance is addressed by its mount key, the (chatId, nodeId) pair.
The first publish to a mount key on a connection initializes it; later publishes
update it in place. Turns (assistant responses) own their components and their own
streaming state, so several turns can stream at once.

Live-chat transcripts from a human agent go through the same path: the normalizer
turns them into the same turns and components a workflow would produce.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/surface"
		"github.com/aretw0/surface/pkg/adapters/memory"
		"github.com/aretw0/surface/pkg/node"
	)

	func main() {
		s, err := surface.New(surface.WithStore(memory.NewStore()))
		if err != nil {
			log.Fatal(err)
		}

		// Transports attach connections to s.Sessions(); nodes publish through the executor.
		_, err = s.Executor().Execute(context.Background(), node.ExecutionContext{NodeID: "greet"}, map[string]any{
			"componentType": "text",
			"props":         map[string]any{"content": "Hello!"},
			"publishingContext": map[string]any{
				"chatId": "c1", "conversationId": "conv1", "userId": "u1",
			},
		})
		if err != nil {
			log.Fatal(err)
		}
	}
*/
package surface
