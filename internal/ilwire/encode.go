package ilwire

import (
	"fmt"

	"github.com/jhump/protoreflect/dynamic"

	"github.com/pilc-lang/pilc/internal/il"
)

func declKindName(k il.DeclKind) string {
	switch k {
	case il.DeclGlobal:
		return "global"
	case il.DeclLocal:
		return "local"
	case il.DeclTmp:
		return "tmp"
	case il.DeclConstant:
		return "constant"
	case il.DeclType:
		return "type"
	case il.DeclFunction:
		return "function"
	case il.DeclHook:
		return "hook"
	case il.DeclContext:
		return "context"
	default:
		return "unknown"
	}
}

func domainModeName(m il.DomainMode) string {
	if m == il.DomainModeProtocolParser {
		return "protocol-parser"
	}
	return "none"
}

func setField(msg *dynamic.Message, name string, value interface{}) error {
	fd := msg.GetMessageDescriptor().FindFieldByName(name)
	if fd == nil {
		return fmt.Errorf("ilwire: field %q not in schema for %s", name, msg.GetMessageDescriptor().GetFullyQualifiedName())
	}
	return msg.TrySetField(fd, value)
}

func declarationMessage(d *il.Declaration) (*dynamic.Message, error) {
	md, err := messageDescriptor("Declaration")
	if err != nil {
		return nil, err
	}
	msg := dynamic.NewMessage(md)
	typeName := ""
	if d.Type != nil {
		typeName = d.Type.String()
	}
	if err := setField(msg, "id", d.ID.String()); err != nil {
		return nil, err
	}
	if err := setField(msg, "kind", declKindName(d.Kind)); err != nil {
		return nil, err
	}
	if err := setField(msg, "type_name", typeName); err != nil {
		return nil, err
	}
	return msg, nil
}

func functionMessage(d *il.Declaration) (*dynamic.Message, error) {
	md, err := messageDescriptor("Function")
	if err != nil {
		return nil, err
	}
	msg := dynamic.NewMessage(md)
	fn := d.Func

	var bodyText string
	for _, b := range fn.Bodies {
		bodyText += dumpBody(b)
	}

	fields := map[string]interface{}{
		"id":        fn.ID.String(),
		"exported":  fn.Exported,
		"is_hook":   fn.IsHook,
		"priority":  fn.Priority,
		"group":     fn.Group,
		"body_text": bodyText,
	}
	for name, v := range fields {
		if err := setField(msg, name, v); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// Encode renders a finished IL module into the wire bytes a
// downstream backend receives via ILExchangeServer.SubmitModule — a
// dynamic.Message built from the runtime-parsed schema and marshaled
// the same way funxy's protoEncode builtin marshals a dynamic message,
// just with fields populated from *il.Module directly instead of from
// a generic interpreter Object.
func Encode(m *il.Module) ([]byte, error) {
	md, err := messageDescriptor("Module")
	if err != nil {
		return nil, err
	}
	msg := dynamic.NewMessage(md)

	if err := setField(msg, "id", m.ID.String()); err != nil {
		return nil, err
	}
	if err := setField(msg, "path", m.Path); err != nil {
		return nil, err
	}
	if err := setField(msg, "mode", domainModeName(m.Mode)); err != nil {
		return nil, err
	}

	var imports []interface{}
	for _, imp := range m.Imports {
		imports = append(imports, imp.String())
	}
	if imports != nil {
		if err := setField(msg, "imports", imports); err != nil {
			return nil, err
		}
	}

	if err := setDeclarations(msg, "globals", m.Globals); err != nil {
		return nil, err
	}
	if err := setDeclarations(msg, "constants", m.Constants); err != nil {
		return nil, err
	}
	if err := setDeclarations(msg, "types", m.Types); err != nil {
		return nil, err
	}

	var fns []interface{}
	for _, d := range m.Functions {
		fm, err := functionMessage(d)
		if err != nil {
			return nil, fmt.Errorf("encoding function %s: %w", d.ID, err)
		}
		fns = append(fns, fm)
	}
	if fns != nil {
		if err := setField(msg, "functions", fns); err != nil {
			return nil, err
		}
	}

	return msg.Marshal()
}

func setDeclarations(msg *dynamic.Message, field string, decls []*il.Declaration) error {
	if len(decls) == 0 {
		return nil
	}
	var out []interface{}
	for _, d := range decls {
		dm, err := declarationMessage(d)
		if err != nil {
			return fmt.Errorf("encoding declaration %s: %w", d.ID, err)
		}
		out = append(out, dm)
	}
	return setField(msg, field, out)
}

// DeclarationInfo is the decoded counterpart of the wire Declaration
// message.
type DeclarationInfo struct {
	ID       string
	Kind     string
	TypeName string
}

// FunctionInfo is the decoded counterpart of the wire Function
// message.
type FunctionInfo struct {
	ID       string
	Exported bool
	IsHook   bool
	Priority int64
	Group    int64
	BodyText string
}

// ModuleInfo is what a downstream backend — or a test verifying
// Encode/Decode agree — gets back out of wire bytes. It is
// deliberately not an *il.Module: SubmitModule is a handoff to a
// system outside this compiler's own type graph, not a round trip
// through it.
type ModuleInfo struct {
	ID        string
	Path      string
	Mode      string
	Imports   []string
	Globals   []DeclarationInfo
	Constants []DeclarationInfo
	Types     []DeclarationInfo
	Functions []FunctionInfo
}

func decodeDeclarations(msg *dynamic.Message, field string) ([]DeclarationInfo, error) {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return nil, fmt.Errorf("ilwire: field %q not in schema", field)
	}
	raw, ok := msg.GetField(fd).([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]DeclarationInfo, 0, len(raw))
	for _, item := range raw {
		dm, ok := item.(*dynamic.Message)
		if !ok {
			continue
		}
		out = append(out, DeclarationInfo{
			ID:       fmt.Sprintf("%v", dm.GetFieldByName("id")),
			Kind:     fmt.Sprintf("%v", dm.GetFieldByName("kind")),
			TypeName: fmt.Sprintf("%v", dm.GetFieldByName("type_name")),
		})
	}
	return out, nil
}

// Decode parses wire bytes produced by Encode back into a ModuleInfo.
func Decode(data []byte) (*ModuleInfo, error) {
	md, err := messageDescriptor("Module")
	if err != nil {
		return nil, err
	}
	msg := dynamic.NewMessage(md)
	if err := msg.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("ilwire: unmarshal module: %w", err)
	}

	info := &ModuleInfo{
		ID:   fmt.Sprintf("%v", msg.GetFieldByName("id")),
		Path: fmt.Sprintf("%v", msg.GetFieldByName("path")),
		Mode: fmt.Sprintf("%v", msg.GetFieldByName("mode")),
	}
	if raw, ok := msg.GetFieldByName("imports").([]interface{}); ok {
		for _, v := range raw {
			info.Imports = append(info.Imports, fmt.Sprintf("%v", v))
		}
	}

	if info.Globals, err = decodeDeclarations(msg, "globals"); err != nil {
		return nil, err
	}
	if info.Constants, err = decodeDeclarations(msg, "constants"); err != nil {
		return nil, err
	}
	if info.Types, err = decodeDeclarations(msg, "types"); err != nil {
		return nil, err
	}

	if raw, ok := msg.GetFieldByName("functions").([]interface{}); ok {
		for _, item := range raw {
			fm, ok := item.(*dynamic.Message)
			if !ok {
				continue
			}
			info.Functions = append(info.Functions, FunctionInfo{
				ID:       fmt.Sprintf("%v", fm.GetFieldByName("id")),
				Exported: fm.GetFieldByName("exported").(bool),
				IsHook:   fm.GetFieldByName("is_hook").(bool),
				Priority: fm.GetFieldByName("priority").(int64),
				Group:    fm.GetFieldByName("group").(int64),
				BodyText: fmt.Sprintf("%v", fm.GetFieldByName("body_text")),
			})
		}
	}

	return info, nil
}
