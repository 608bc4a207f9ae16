// Package stream reassembles structured JSON payloads from the raw text
// fragments produced by streamed model invocations.
//
// Fragments are line oriented and may carry an event-stream "data:"
// prefix. The Assembler strips the framing, drops the terminal sentinel,
// concatenates the remaining text and hands back the first complete JSON
// object or array found in the accumulated buffer:
//
//	asm := stream.NewAssembler(stream.DefaultConfig())
//	for chunk, err := range chunks {
//		if err != nil {
//			break
//		}
//		if obj, ok := asm.Feed(chunk); ok {
//			// obj is a complete JSON document
//		}
//	}
//
// An Assembler belongs to a single streamed invocation and is not safe
// for concurrent use.
package stream
