// Package protocol defines the wire format between the client and the agent
// stream.
//
// Outbound traffic is exactly two frame shapes, both JSON text frames:
//
//	{"uuid": "<session>", "init": true}       once, immediately after open
//	{"uuid": "<session>", "message": "<text>"} once per accepted user submit
//
// Inbound frames are decoded into a discriminated Event. Three recognized
// shapes, tested in precedence order: a token fragment
// ({"on_chat_model_stream": "<text>"}), a turn-completion marker
// ({"on_chat_model_end": true}), and any other object, which is treated as a
// generic signal named after its first key. Frames that fail JSON parsing are
// passed through verbatim as plain text; valid JSON that matches no shape is
// dropped.
package protocol
