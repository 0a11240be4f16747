/*
Package livechat normalizes messages from a human live-chat system into the same
turn and component shape the workflow engine produces.

A foreign message always becomes one complete turn. Its text becomes a "text"
component; recognized interactive templates (list pickers, time pickers)
embedded as JSON in the content add a second, interactive component. Every
component is tagged in metadata with its origin, source system, sender and wire
content type, so renderers apply agent chrome without knowing the foreign format.
*/
package livechat
