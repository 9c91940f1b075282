// Package rpc is the wire contract between the client and the remote
// document store.
//
// Messages are plain Go structs encoded as JSON by a gRPC codec registered
// under the "json" content subtype, and the DocumentStore service is
// declared by hand with grpc.ServiceDesc, in the same shape protoc-gen-go-grpc
// would generate.
package rpc
