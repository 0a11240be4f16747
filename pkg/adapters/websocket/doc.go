/*
Package websocket is the live connection transport of Surface.

The server side accepts one websocket per (userId, conversationId), attaches it to
a session.Manager and feeds every inbound client frame to the manager. Outbound
frames are written by the publisher through Conn, which implements
session.Transport.

The client side (Dial) is what terminal consumers and tests use to receive
COMPONENT_INIT / COMPONENT_DATA envelopes and to send USER_MESSAGE and focus
frames back.
*/
package websocket
