package host

import (
	"fmt"
	"slices"
	"strings"
)

const (
	permDefault = "default"
	permAllow   = "allow-"
	permDeny    = "deny-"
)

// acl maps plugin name to the commands the frontend may invoke.
type acl struct {
	allowed map[string]map[string]bool
}

// newACL resolves capability identifiers against the registered plugins.
// Deny entries win over allow entries regardless of order.
func newACL(capabilities []string, plugins []Plugin) (*acl, error) {
	byName := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		byName[p.Name()] = p
	}

	allowed := make(map[string]map[string]bool)
	denied := make(map[string][]string)

	for _, capability := range capabilities {
		name, perm, ok := strings.Cut(capability, ":")
		if !ok {
			return nil, fmt.Errorf("capability %q has no plugin prefix", capability)
		}
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("capability %q refers to unregistered plugin %q", capability, name)
		}
		if allowed[name] == nil {
			allowed[name] = make(map[string]bool)
		}

		switch {
		case perm == permDefault:
			for _, cmd := range p.DefaultCommands() {
				allowed[name][cmd] = true
			}
		case strings.HasPrefix(perm, permAllow):
			cmd := strings.TrimPrefix(perm, permAllow)
			if !slices.Contains(p.Commands(), cmd) {
				return nil, fmt.Errorf("capability %q: plugin %q has no command %q", capability, name, cmd)
			}
			allowed[name][cmd] = true
		case strings.HasPrefix(perm, permDeny):
			cmd := strings.TrimPrefix(perm, permDeny)
			if !slices.Contains(p.Commands(), cmd) {
				return nil, fmt.Errorf("capability %q: plugin %q has no command %q", capability, name, cmd)
			}
			denied[name] = append(denied[name], cmd)
		default:
			return nil, fmt.Errorf("capability %q has unknown permission %q", capability, perm)
		}
	}

	for name, cmds := range denied {
		for _, cmd := range cmds {
			delete(allowed[name], cmd)
		}
	}
	return &acl{allowed: allowed}, nil
}

func (a *acl) authorize(plugin, command string) error {
	if a.allowed[plugin][command] {
		return nil
	}
	return fmt.Errorf("%w: plugin:%s|%s", ErrForbidden, plugin, command)
}

// granted lists the allowed commands of plugin, sorted.
func (a *acl) granted(plugin string) []string {
	cmds := make([]string, 0, len(a.allowed[plugin]))
	for cmd := range a.allowed[plugin] {
		cmds = append(cmds, cmd)
	}
	slices.Sort(cmds)
	return cmds
}
