package datastore

import (
	"fmt"
	"strings"
)

// Capabilities restrict what statements run against the datastore may do. Function targets are either a full name
// such as "string::len" or a family such as "string" which covers every function below it.
type Capabilities struct {
	Scripting              bool
	GuestAccess            bool
	LiveQueryNotifications bool

	AllowFunctions []string
	DenyFunctions  []string
}

// NewCapabilities allows every function and live query notifications, without scripting or guest access.
func NewCapabilities() *Capabilities {
	return &Capabilities{
		LiveQueryNotifications: true,
		AllowFunctions:         []string{"*"},
	}
}

// AllowsFunction reports whether a function may be called. A deny target wins over an allow target.
func (c *Capabilities) AllowsFunction(name string) bool {
	return matchesAny(c.AllowFunctions, name) && !matchesAny(c.DenyFunctions, name)
}

func matchesAny(targets []string, name string) bool {
	for _, t := range targets {
		if t == "*" || t == name || strings.HasPrefix(name, t+"::") {
			return true
		}
	}
	return false
}

func (c *Capabilities) String() string {
	return fmt.Sprintf("scripting=%t, guest_access=%t, live_query_notifications=%t, allow_funcs=%v, deny_funcs=%v",
		c.Scripting, c.GuestAccess, c.LiveQueryNotifications, c.AllowFunctions, c.DenyFunctions)
}
