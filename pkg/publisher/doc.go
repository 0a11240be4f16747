/*
Package publisher decides, per connection and per mount key, whether a component
update is a first mount or a delta, and sends exactly one wire message for it.

The first publish to a (chatId, nodeId) slot on a connection is a COMPONENT_INIT
carrying the full component definition. Every later publish to the same slot is a
COMPONENT_DATA carrying only the props that are neither nil nor the empty string,
so a partial update never blanks a field the client already shows.

Mount registries belong to connections: a reconnecting client gets a fresh
registry and therefore fresh INITs.
*/
package publisher
