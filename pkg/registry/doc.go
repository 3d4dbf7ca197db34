// Package registry turns host functions into graph commands.
//
// Commands are declared in groups. Each definition names a Go function and one
// ParamSpec per parameter (context.Context parameters are filled in
// automatically and need no spec). Reflection happens once, at registration:
// the function's parameters become ports and its return type decides how the
// node completes.
//
//	reg := registry.NewRegistry()
//	err := reg.Register(registry.Group{
//	    Name: "Math",
//	    Definitions: []registry.Definition{
//	        registry.Func("Add", func(a, b int) int { return a + b },
//	            registry.Arg("a"), registry.Arg("b").Default(1)),
//	    },
//	})
//
// Return types map to completion kinds:
//
//   - no result: completes immediately
//   - Delay: suspends for the duration
//   - *Task: suspends until the task finishes
//   - *Future: suspends until the future resolves, then writes Result
//   - anything else: completes immediately and writes Result
//
// A trailing error result is allowed on every kind.
package registry
