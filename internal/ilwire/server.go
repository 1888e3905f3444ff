package ilwire

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/pilc-lang/pilc/internal/il"
)

// SubmitHandler is invoked for every SubmitModule call the server
// receives, with the session id the caller stamped onto the request
// and the decoded module.
type SubmitHandler func(ctx context.Context, sessionID string, module *ModuleInfo) error

// ILExchangeServer, once registered onto a *grpc.Server with
// RegisterTo, serves the SubmitModule handoff point a finished module crosses
// to reach an out-of-core downstream backend (spec §6.1). Built the
// way funxy's builtinGrpcRegister constructs a grpc.ServiceDesc by
// hand from a *desc.ServiceDescriptor instead of from generated code,
// since the schema is parsed at runtime rather than protoc-compiled.
type ILExchangeServer struct {
	Handler SubmitHandler
}

// RegisterTo registers the ILExchange service onto an existing
// *grpc.Server, mirroring builtinGrpcRegister's hand-built
// grpc.ServiceDesc/grpc.MethodDesc construction.
func (s *ILExchangeServer) RegisterTo(server *grpc.Server) error {
	sd, err := serviceDescriptor("ILExchange")
	if err != nil {
		return err
	}

	desc := &grpc.ServiceDesc{
		ServiceName: sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    sd.GetFile().GetName(),
	}

	for _, method := range sd.GetMethods() {
		md := method
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				h := srv.(*ILExchangeServer)
				return h.handleSubmitModule(ctx, md, dec)
			},
		})
	}

	server.RegisterService(desc, s)
	return nil
}

func (s *ILExchangeServer) handleSubmitModule(ctx context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	reqMsg := dynamic.NewMessage(md.GetInputType())
	if err := dec(reqMsg); err != nil {
		return nil, err
	}

	sessionID := fmt.Sprintf("%v", reqMsg.GetFieldByName("session_id"))

	var module *ModuleInfo
	if raw, ok := reqMsg.GetFieldByName("module").(*dynamic.Message); ok {
		data, err := raw.Marshal()
		if err != nil {
			return nil, fmt.Errorf("ilwire: remarshal embedded module: %w", err)
		}
		module, err = Decode(data)
		if err != nil {
			return nil, err
		}
	}

	respMsg := dynamic.NewMessage(md.GetOutputType())
	if s.Handler != nil {
		if err := s.Handler(ctx, sessionID, module); err != nil {
			if setErr := setField(respMsg, "accepted", false); setErr != nil {
				return nil, setErr
			}
			if setErr := setField(respMsg, "message", err.Error()); setErr != nil {
				return nil, setErr
			}
			return respMsg, nil
		}
	}
	if err := setField(respMsg, "accepted", true); err != nil {
		return nil, err
	}
	if err := setField(respMsg, "message", "ok"); err != nil {
		return nil, err
	}
	return respMsg, nil
}

// SubmitModule invokes the ILExchange.SubmitModule RPC over conn,
// the client-side counterpart of ILExchangeServer, built the same
// way funxy's builtinGrpcInvoke drives a dynamic.Message call through
// a *grpc.ClientConn.
func SubmitModule(ctx context.Context, conn *grpc.ClientConn, sessionID string, m *il.Module) (accepted bool, message string, err error) {
	reqMD, err := messageDescriptor("SubmitModuleRequest")
	if err != nil {
		return false, "", err
	}
	moduleMD, err := messageDescriptor("Module")
	if err != nil {
		return false, "", err
	}

	data, err := Encode(m)
	if err != nil {
		return false, "", err
	}
	moduleMsg := dynamic.NewMessage(moduleMD)
	if err := moduleMsg.Unmarshal(data); err != nil {
		return false, "", fmt.Errorf("ilwire: re-decode module for request: %w", err)
	}

	reqMsg := dynamic.NewMessage(reqMD)
	if err := setField(reqMsg, "session_id", sessionID); err != nil {
		return false, "", err
	}
	if err := setField(reqMsg, "module", moduleMsg); err != nil {
		return false, "", err
	}

	respMD, err := messageDescriptor("SubmitModuleResponse")
	if err != nil {
		return false, "", err
	}
	respMsg := dynamic.NewMessage(respMD)

	if err := conn.Invoke(ctx, "/pilc.ilwire.ILExchange/SubmitModule", reqMsg, respMsg); err != nil {
		return false, "", fmt.Errorf("ilwire: SubmitModule RPC: %w", err)
	}

	accepted, _ = respMsg.GetFieldByName("accepted").(bool)
	message = fmt.Sprintf("%v", respMsg.GetFieldByName("message"))
	return accepted, message, nil
}
