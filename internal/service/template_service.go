// internal/service/template_service.go
package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/unclebandit/dmvprep-mailer/internal/repository"
)

// tokenPattern matches {{Namespace.field}}.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// LookupFunc loads the variables of one recipient. A nil map with a nil
// error means there is no record for the recipient.
type LookupFunc func(ctx context.Context, recipient string) (map[string]string, error)

// VariableSource is a template namespace: the fields authors may use and
// how to load them.
type VariableSource struct {
	Fields []string
	Lookup LookupFunc
}

type registeredSource struct {
	fields map[string]struct{}
	lookup LookupFunc
}

// TemplateRenderer substitutes {{Namespace.field}} tokens with
// per-recipient values. Unknown namespaces, fields outside a namespace's
// allowlist, and recipients without a record all render as "".
type TemplateRenderer struct {
	sources map[string]registeredSource
}

func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{sources: map[string]registeredSource{}}
}

// Register adds or replaces a namespace. Call it during setup only.
func (r *TemplateRenderer) Register(namespace string, src VariableSource) {
	fields := make(map[string]struct{}, len(src.Fields))
	for _, f := range src.Fields {
		fields[f] = struct{}{}
	}
	r.sources[namespace] = registeredSource{fields: fields, lookup: src.Lookup}
}

// Render returns tmpl with every token replaced for recipient. Templates
// without tokens are returned as is, without any lookup.
func (r *TemplateRenderer) Render(ctx context.Context, tmpl, recipient string) (string, error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(tmpl, -1)
	if len(matches) == 0 {
		return tmpl, nil
	}

	loaded := map[string]map[string]string{}
	var b strings.Builder
	b.Grow(len(tmpl))
	last := 0

	for _, m := range matches {
		b.WriteString(tmpl[last:m[0]])
		last = m[1]

		namespace := tmpl[m[2]:m[3]]
		field := tmpl[m[4]:m[5]]

		src, ok := r.sources[namespace]
		if !ok {
			continue
		}
		if _, allowed := src.fields[field]; !allowed {
			continue
		}

		vars, seen := loaded[namespace]
		if !seen {
			var err error
			vars, err = src.lookup(ctx, recipient)
			if err != nil {
				return "", fmt.Errorf("lookup %s for %s: %w", namespace, recipient, err)
			}
			loaded[namespace] = vars
		}
		b.WriteString(vars[field])
	}
	b.WriteString(tmpl[last:])

	return b.String(), nil
}

// UsersNamespace is the namespace exposed to campaign authors as {{Users.x}}.
const UsersNamespace = "Users"

var usersFields = []string{
	"firstName",
	"lastName",
	"email",
	"role",
	"createdAt",
	"marketingEmails",
	"productUpdates",
	"testReminders",
}

// NewUsersSource exposes the allowlisted user fields of the recipient.
func NewUsersSource(users repository.UserRepositoryInterface) VariableSource {
	return VariableSource{
		Fields: usersFields,
		Lookup: func(ctx context.Context, recipient string) (map[string]string, error) {
			u, err := users.GetByEmail(ctx, recipient)
			if err != nil {
				return nil, err
			}
			if u == nil {
				return nil, nil
			}
			return map[string]string{
				"firstName":       u.FirstName,
				"lastName":        u.LastName,
				"email":           u.Email,
				"role":            u.Role,
				"createdAt":       u.CreatedAt.UTC().Format(time.RFC3339),
				"marketingEmails": strconv.FormatBool(u.MarketingEmails),
				"productUpdates":  strconv.FormatBool(u.ProductUpdates),
				"testReminders":   strconv.FormatBool(u.TestReminders),
			}, nil
		},
	}
}
