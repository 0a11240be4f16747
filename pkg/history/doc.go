/*
Package history keeps the ordered log of a conversation: user messages and
assistant turns, each turn with its own streaming state and component list.

Turns are independent. Several can stream at once and several components can
attach to the same turn; nothing in here holds a global "is streaming" flag.
FilterComponents lets a layout pick "the image", "the main text" and "the card"
out of an unordered component stream.
*/
package history
