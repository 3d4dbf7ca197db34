// Package builtin provides the commands every graph can use.
package builtin

import (
	"fmt"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/registry"
)

// Group names.
const (
	FlowGroup  = "Flow"
	DebugGroup = "Debug"
)

// Groups returns every built-in group.
func Groups() []registry.Group {
	return []registry.Group{Flow(), Debug()}
}

// Flow holds entry points, shared value access, timing and branching.
func Flow() registry.Group {
	return registry.Group{
		Name: FlowGroup,
		Definitions: []registry.Definition{
			registry.StartFunc("Start", func() {}).
				Describe("Entry point of a walk."),
			registry.StartFunc("Event", func(key string) {}, registry.Arg("eventKey").KeyName().Default("event")).
				Describe("Named entry point. The node id is the event key."),
			registry.Func("GetValue", getValue, registry.Arg(domain.ParamSelf), registry.Arg("key")).
				Describe("Reads a shared value."),
			registry.Func("SetValue", setValue, registry.Arg(domain.ParamSelf), registry.Arg("key"), registry.Arg("value")).
				Describe("Writes a shared value."),
			registry.Func("Delay", delay, registry.Arg("time").Default(1)).
				Describe("Waits for the given number of seconds."),
			registry.Func("Branch", branch,
				registry.Arg(domain.ParamSelf), registry.Arg("condition"), registry.Arg("True").Out(), registry.Arg("False").Out(),
			).Describe("Continues on True or False."),
			registry.Func("Switch", choose,
				registry.Arg(domain.ParamSelf), registry.Arg("index"), registry.Arg("cases").Out(),
			).Describe("Continues on the case at index."),
		},
	}
}

// Debug holds logging commands. They write through the graph logger.
func Debug() registry.Group {
	return registry.Group{
		Name: DebugGroup,
		Definitions: []registry.Definition{
			registry.Func("Log", func(self registry.Self, obj any) {
				self.Logger().Info(fmt.Sprint(obj))
			}, registry.Arg(domain.ParamSelf), registry.Arg("obj")),
			registry.Func("LogWarning", func(self registry.Self, obj any) {
				self.Logger().Warn(fmt.Sprint(obj))
			}, registry.Arg(domain.ParamSelf), registry.Arg("obj")),
			registry.Func("LogError", func(self registry.Self, obj any) {
				self.Logger().Error(fmt.Sprint(obj))
			}, registry.Arg(domain.ParamSelf), registry.Arg("obj")),
		},
	}
}

func getValue(self registry.Self, key string) any {
	v, _ := self.Shared().Get(key)
	return v
}

func setValue(self registry.Self, key string, value any) error {
	return self.Shared().Set(key, value)
}

func delay(seconds float32) registry.Delay {
	return registry.Seconds(float64(seconds))
}

func branch(self registry.Self, condition bool, _, _ registry.Flow) error {
	if condition {
		return self.SetNextPort("True", 0)
	}
	return self.SetNextPort("False", 0)
}

func choose(self registry.Self, index int, _ registry.FlowList) error {
	return self.SetNextPort("cases", index)
}
