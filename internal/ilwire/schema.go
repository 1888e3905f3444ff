package ilwire

import (
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// schemaSource is the wire schema for a serialized IL module, parsed
// at runtime instead of compiled in via protoc — the same approach
// funxy's grpcLoadProto/protoEncode take with protoparse.Parser and
// dynamic.Message, so no *.pb.go generation step is ever needed.
const schemaSource = `
syntax = "proto3";
package pilc.ilwire;

message Declaration {
  string id = 1;
  string kind = 2;
  string type_name = 3;
}

message Function {
  string id = 1;
  bool exported = 2;
  bool is_hook = 3;
  int64 priority = 4;
  int64 group = 5;
  string body_text = 6;
}

message Module {
  string id = 1;
  string path = 2;
  string mode = 3;
  repeated string imports = 4;
  repeated Declaration globals = 5;
  repeated Declaration constants = 6;
  repeated Declaration types = 7;
  repeated Function functions = 8;
}

message SubmitModuleRequest {
  string session_id = 1;
  Module module = 2;
}

message SubmitModuleResponse {
  bool accepted = 1;
  string message = 2;
}

service ILExchange {
  rpc SubmitModule(SubmitModuleRequest) returns (SubmitModuleResponse);
}
`

var (
	schemaOnce  sync.Once
	schemaFile  *desc.FileDescriptor
	schemaErr   error
)

// fileDescriptor lazily parses schemaSource, memoizing the result —
// every Encode/Decode/server call shares one parse.
func fileDescriptor() (*desc.FileDescriptor, error) {
	schemaOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{
				"ilwire.proto": schemaSource,
			}),
		}
		fds, err := parser.ParseFiles("ilwire.proto")
		if err != nil {
			schemaErr = err
			return
		}
		schemaFile = fds[0]
	})
	return schemaFile, schemaErr
}

func messageDescriptor(name string) (*desc.MessageDescriptor, error) {
	fd, err := fileDescriptor()
	if err != nil {
		return nil, err
	}
	md := fd.FindMessage("pilc.ilwire." + name)
	if md == nil {
		return nil, errNotFound("message", name)
	}
	return md, nil
}

func serviceDescriptor(name string) (*desc.ServiceDescriptor, error) {
	fd, err := fileDescriptor()
	if err != nil {
		return nil, err
	}
	sd := fd.FindService("pilc.ilwire." + name)
	if sd == nil {
		return nil, errNotFound("service", name)
	}
	return sd, nil
}

type notFoundError struct {
	kind, name string
}

func (e *notFoundError) Error() string {
	return "ilwire: " + e.kind + " " + e.name + " not found in schema"
}

func errNotFound(kind, name string) error { return &notFoundError{kind, name} }
