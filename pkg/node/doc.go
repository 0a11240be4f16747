/*
Package node is the boundary between workflow orchestration and the publisher.

A workflow node executes with an ExecutionContext and a params map. The
executor decodes the params, completes the component from the catalog, and
publishes it to the connection named by the node's publishing context. A node
that runs without a publishing context cannot know where its output goes; that
is the one failure fatal to the node.
*/
package node
