package starlarktools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/mfateev/yada-go/internal/tools"
)

// scriptTool is a Starlark function exposed as a tool.
type scriptTool struct {
	script *script
	fn     *starlark.Function
	spec   tools.ToolSpec
}

func (t *scriptTool) Spec() tools.ToolSpec { return t.spec }

func (t *scriptTool) Handle(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	kwargs := make([]starlark.Tuple, 0, len(invocation.Arguments))
	names := make([]string, 0, len(invocation.Arguments))
	for name := range invocation.Arguments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := t.spec.Parameter(name); !ok {
			return nil, tools.NewValidationError(fmt.Sprintf("unexpected argument: %s", name))
		}
		v, err := toStarlark(invocation.Arguments[name])
		if err != nil {
			return nil, tools.NewValidationError(fmt.Sprintf("argument %s: %v", name, err))
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(name), v})
	}

	thread := t.script.newThread(ctx)
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	result, err := starlark.Call(thread, t.fn, nil, kwargs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("%s", evalErr.Msg)
		}
		return nil, err
	}
	return tools.Succeeded(fromStarlark(result)), nil
}

// specFromFunction derives the tool spec from a function's signature and
// docstring.
func specFromFunction(fn *starlark.Function) (tools.ToolSpec, error) {
	if fn.HasVarargs() || fn.HasKwargs() {
		return tools.ToolSpec{}, fmt.Errorf("tool %s: *args and **kwargs are not supported", fn.Name())
	}
	if fn.Name() == "lambda" {
		return tools.ToolSpec{}, fmt.Errorf("lambdas cannot be tools")
	}
	spec := tools.ToolSpec{
		Name:        fn.Name(),
		Description: strings.TrimSpace(fn.Doc()),
	}
	for i := 0; i < fn.NumParams(); i++ {
		name, _ := fn.Param(i)
		param := tools.ToolParameter{Name: name, Type: "string", Required: true}
		if def := fn.ParamDefault(i); def != nil {
			param.Required = false
			param.Type = typeOf(def)
		}
		spec.Parameters = append(spec.Parameters, param)
	}
	if spec.Description == "" {
		spec.Description = "Custom tool " + spec.Name + "."
	}
	return spec, nil
}

func typeOf(v starlark.Value) string {
	switch v.(type) {
	case starlark.Bool:
		return "boolean"
	case starlark.Int:
		return "integer"
	case starlark.Float:
		return "number"
	case *starlark.List, starlark.Tuple:
		return "array"
	case *starlark.Dict:
		return "object"
	}
	return "string"
}

// toStarlark converts a decoded JSON value.
func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return starlark.MakeInt64(int64(val)), nil
		}
		return starlark.Float(val), nil
	case []any:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			sv, err := toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		d := starlark.NewDict(len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sv, err := toStarlark(val[k])
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

// fromStarlark renders a function result as tool output text.
func fromStarlark(v starlark.Value) string {
	switch val := v.(type) {
	case starlark.NoneType:
		return ""
	case starlark.String:
		return string(val)
	}
	return v.String()
}
