package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/schema"
)

// ErrPanic is returned when a command panics during invocation.
var ErrPanic = errors.New("command panicked")

var (
	ctxType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType      = reflect.TypeOf((*error)(nil)).Elem()
	selfType     = reflect.TypeOf((*Self)(nil)).Elem()
	delayType    = reflect.TypeOf(Delay(0))
	taskType     = reflect.TypeOf((*Task)(nil))
	futureType   = reflect.TypeOf((*Future)(nil))
	flowType     = reflect.TypeOf(Flow{})
	flowListType = reflect.TypeOf(FlowList(nil))
)

type slotKind int

const (
	slotValue slotKind = iota
	slotContext
	slotSelf
	slotOut
)

type slot struct {
	kind slotKind
	arg  int
	rt   reflect.Type
	typ  schema.Type
}

// reflectInvoker calls a Go function through a plan computed at registration.
type reflectInvoker struct {
	fn        reflect.Value
	slots     []slot
	hasResult bool
	hasErr    bool
}

func (r *reflectInvoker) Invoke(ctx context.Context, args []any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()

	in := make([]reflect.Value, len(r.slots))
	var outs []int
	for i, s := range r.slots {
		switch s.kind {
		case slotContext:
			in[i] = reflect.ValueOf(&ctx).Elem()
		case slotSelf:
			in[i] = valueOrZero(args[s.arg], s.rt)
		case slotOut:
			ptr := reflect.New(s.rt.Elem())
			v, err := schema.Convert(args[s.arg], s.typ)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", s.arg, err)
			}
			if v != nil {
				ptr.Elem().Set(reflect.ValueOf(v))
			}
			in[i] = ptr
			outs = append(outs, i)
		default:
			v, err := schema.Convert(args[s.arg], s.typ)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", s.arg, err)
			}
			in[i] = valueOrZero(v, s.rt)
		}
	}

	results := r.fn.Call(in)
	if r.hasErr {
		if errv := results[len(results)-1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
	}
	for _, i := range outs {
		args[r.slots[i].arg] = in[i].Elem().Interface()
	}
	if r.hasResult {
		return results[0].Interface(), nil
	}
	return nil, nil
}

func valueOrZero(v any, rt reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(rt)
	}
	rv := reflect.ValueOf(v)
	if rt.Kind() == reflect.Interface && rv.Type() != rt {
		out := reflect.New(rt).Elem()
		out.Set(rv)
		return out
	}
	return rv
}

// build turns a definition into a command. All reflection happens here.
func build(group string, d Definition, codec ports.Codec) (*Command, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: empty name in group %q", domain.ErrInvalidCommand, group)
	}
	cmd := &Command{
		Key:         group + "/" + d.Name,
		Name:        d.Name,
		Group:       group,
		Description: d.Description,
		Start:       d.Start,
	}
	fail := func(format string, args ...any) (*Command, error) {
		return nil, &domain.CommandError{
			Command: cmd.Key,
			Err:     fmt.Errorf("%w: %s", domain.ErrInvalidCommand, fmt.Sprintf(format, args...)),
		}
	}

	if d.Invoker != nil {
		for i, spec := range d.Params {
			p := explicitParam(spec)
			if err := applyDefault(&p, spec, codec); err != nil {
				return fail("param %d: %v", i, err)
			}
			cmd.Params = append(cmd.Params, p)
		}
		cmd.Returns = d.Returns
		if cmd.Returns.HasResult() {
			cmd.ResultType = orAny(d.Result)
		}
		cmd.invoker = d.Invoker
		return cmd, nil
	}

	fv := reflect.ValueOf(d.Fn)
	if fv.Kind() != reflect.Func {
		return fail("Fn must be a function, got %T", d.Fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return fail("variadic functions are not supported")
	}

	inv := &reflectInvoker{fn: fv}
	next := 0
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		if pt == ctxType {
			inv.slots = append(inv.slots, slot{kind: slotContext})
			continue
		}
		if next >= len(d.Params) {
			return fail("parameter %d (%s) has no spec", i, pt)
		}
		p, s, err := reflectParam(d.Params[next], pt, next)
		if err != nil {
			return fail("param %q: %v", d.Params[next].name, err)
		}
		if err := applyDefault(&p, d.Params[next], codec); err != nil {
			return fail("param %q: %v", p.Name, err)
		}
		cmd.Params = append(cmd.Params, p)
		inv.slots = append(inv.slots, s)
		next++
	}
	if next != len(d.Params) {
		return fail("%d specs for %d parameters", len(d.Params), next)
	}

	nout := ft.NumOut()
	if nout > 0 && ft.Out(nout-1) == errType {
		inv.hasErr = true
		nout--
	}
	switch nout {
	case 0:
		cmd.Returns = domain.ReturnVoid
	case 1:
		inv.hasResult = true
		switch rt := ft.Out(0); rt {
		case delayType:
			cmd.Returns = domain.ReturnTimerDelay
		case taskType:
			cmd.Returns = domain.ReturnFutureVoid
		case futureType:
			cmd.Returns = domain.ReturnFutureValue
			cmd.ResultType = orAny(d.Result)
		default:
			cmd.Returns = domain.ReturnValue
			cmd.ResultType = d.Result
			if cmd.ResultType == nil {
				cmd.ResultType = schema.Of(rt)
			}
		}
	default:
		return fail("at most one result plus an optional error is supported")
	}

	cmd.invoker = inv
	return cmd, nil
}

func reflectParam(spec ParamSpec, pt reflect.Type, arg int) (Param, slot, error) {
	p := Param{
		Name:    spec.name,
		Output:  spec.output,
		AutoRun: spec.autoRun,
		KeyName: spec.keyName,
		List:    spec.list,
	}
	s := slot{kind: slotValue, arg: arg, rt: pt}

	if pt == selfType || spec.name == domain.ParamSelf {
		if pt != selfType {
			return p, s, fmt.Errorf("%q is reserved for registry.Self", domain.ParamSelf)
		}
		if p.Name == "" {
			p.Name = domain.ParamSelf
		}
		p.Self = true
		p.Output = false
		p.Type = schema.Any()
		s.kind = slotSelf
		return p, s, nil
	}
	if p.Name == "" {
		return p, s, fmt.Errorf("parameter %d has no name", arg)
	}

	if pt == flowType || pt == flowListType {
		p.Control = true
		p.List = pt == flowListType
		p.AutoRun = false
		p.Type = schema.Of(pt)
		s.typ = p.Type
		return p, s, nil
	}

	vt := pt
	if pt.Kind() == reflect.Pointer {
		p.Output = true
	}
	if p.Output {
		if pt.Kind() != reflect.Pointer {
			return p, s, fmt.Errorf("output parameters must be pointers, got %s", pt)
		}
		vt = pt.Elem()
		s.kind = slotOut
	}
	if p.List && vt.Kind() != reflect.Slice {
		return p, s, fmt.Errorf("list parameters must be slices, got %s", vt)
	}
	p.Type = spec.typ
	if p.Type == nil {
		p.Type = schema.Of(vt)
	}
	s.typ = p.Type
	return p, s, nil
}

func explicitParam(spec ParamSpec) Param {
	p := Param{
		Name:    spec.name,
		Type:    orAny(spec.typ),
		Output:  spec.output,
		AutoRun: spec.autoRun,
		KeyName: spec.keyName,
		List:    spec.list,
	}
	if spec.name == domain.ParamSelf {
		p.Self = true
		p.Output = false
	}
	if schema.IsControl(p.Type) {
		p.Control = true
		p.AutoRun = false
		p.List = p.Type.GoType() == flowListType
	}
	return p
}

func applyDefault(p *Param, spec ParamSpec, codec ports.Codec) error {
	if !spec.hasDef {
		return nil
	}
	v, err := schema.Convert(spec.def, p.Type)
	if err != nil {
		return err
	}
	text, err := codec.Format(v, p.Type)
	if err != nil {
		return err
	}
	p.HasDefault = true
	p.Default = text
	return nil
}

func orAny(t schema.Type) schema.Type {
	if t == nil {
		return schema.Any()
	}
	return t
}
