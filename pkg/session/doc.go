/*
Package session owns the live client connections of a Surface server.

A Session is one (userId, conversationId) connection: its transport, its mount
registry, a server-side mirror of the conversation history and the focus router.
The Manager resolves sessions for the publisher, serializes work per connection
with reference-counted locks (optionally backed by a distributed locker), handles
the frames clients send, and saves snapshots so a reconnecting client gets its
history back while the snapshot store still holds it.
*/
package session
