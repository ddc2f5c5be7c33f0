package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Inspect renders a Value for diagnostics (uncaught-exception text,
// backtraces, debugger-less error messages). It is not the language's
// user-facing `to_string` protocol — that belongs to the (out-of-scope)
// standard library — only a VM-internal fallback.
func Inspect(v Value) string {
	switch x := v.(type) {
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case Bool:
		if x {
			return "true"
		}
		return "false"
	case Str:
		return string(x)
	case *List:
		parts := make([]string, len(x.Items))
		for i, it := range x.Items {
			parts[i] = Inspect(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Object:
		return fmt.Sprintf("<%s instance>", x.Struct.Name)
	case *EnumValue:
		if x.Payload != nil {
			return fmt.Sprintf("%s.%s(%s)", x.Enum.Name, x.CaseName(), Inspect(x.Payload))
		}
		return fmt.Sprintf("%s.%s", x.Enum.Name, x.CaseName())
	case *CodeObject:
		return fmt.Sprintf("<code %s>", x.Name)
	case *Function:
		return fmt.Sprintf("<fn %s>", x.Name)
	case *BoundFunction:
		return fmt.Sprintf("<bound fn %s>", Inspect(x.Callee))
	case *NativeFunction:
		return fmt.Sprintf("<native fn %s>", x.Name)
	case *Mixin:
		return fmt.Sprintf("<mixin %s>", x.Name)
	case *TypeValue:
		return fmt.Sprintf("<type %s>", x.Name)
	case *Module:
		return fmt.Sprintf("<module %s>", x.Path)
	case *Opaque:
		return fmt.Sprintf("<%s>", x.TypeName)
	case *WeakRef:
		return "<weakref>"
	case *TypeCheck:
		return fmt.Sprintf("<typecheck %s>", x.Describe)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", x)
	}
}
