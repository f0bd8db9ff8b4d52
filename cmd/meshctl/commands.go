package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"meshmeta/internal/codeschema"
	"meshmeta/internal/gateway/client"
)

const usage = `usage: meshctl [-addr URL] <command>

commands:
  list <kind>
  get <kind> <id>
  delete <kind> <id>
  hierarchy
  schema <file>        extract a schema locally, without the gateway
`

type kindOps struct {
	list   func(ctx context.Context) (any, error)
	get    func(ctx context.Context, id string) (any, error)
	delete func(ctx context.Context, id string) error
}

func opsFor[T, P any](c *client.Collection[T, P]) kindOps {
	return kindOps{
		list:   func(ctx context.Context) (any, error) { return c.List(ctx) },
		get:    func(ctx context.Context, id string) (any, error) { return c.Get(ctx, id) },
		delete: c.Delete,
	}
}

func kinds(c *client.Client) map[string]kindOps {
	return map[string]kindOps{
		"service":         opsFor(c.Services),
		"microservice":    opsFor(c.Microservices),
		"function":        opsFor(c.Functions),
		"endpoint":        opsFor(c.Endpoints),
		"role":            opsFor(c.Roles),
		"security_policy": opsFor(c.SecurityPolicies),
		"active_object":   opsFor(c.ActiveObjects),
		"function_state":  opsFor(c.FunctionStates),
		"function_result": opsFor(c.FunctionResults),
		"endpoint_state":  opsFor(c.EndpointStates),
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("meshctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", firstNonEmpty(os.Getenv("MESHMETA_ADDR"), "http://localhost:8081"), "gateway base URL")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cmd, rest := rest[0], rest[1:]
	if cmd == "schema" {
		return schema(rest, out)
	}

	c := client.New(*addr, nil)
	switch cmd {
	case "hierarchy":
		tree, err := c.Hierarchy(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, tree)
	case "list", "get", "delete":
		return crud(ctx, c, cmd, rest, out)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func crud(ctx context.Context, c *client.Client, cmd string, args []string, out io.Writer) error {
	want := 2
	if cmd == "list" {
		want = 1
	}
	if len(args) != want {
		return fmt.Errorf("%s expects %d argument(s)\n%s", cmd, want, usage)
	}
	table := kinds(c)
	ops, ok := table[args[0]]
	if !ok {
		return fmt.Errorf("unknown kind %q (one of %s)", args[0], strings.Join(kindNames(table), ", "))
	}
	switch cmd {
	case "list":
		items, err := ops.list(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, items)
	case "get":
		doc, err := ops.get(ctx, args[1])
		if err != nil {
			return err
		}
		return printJSON(out, doc)
	default:
		if err := ops.delete(ctx, args[1]); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "deleted %s %s\n", args[0], args[1])
		return err
	}
}

func schema(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("schema expects a file\n%s", usage)
	}
	code, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	res := codeschema.Extract(string(code))
	return printJSON(out, map[string]any{
		"class_name": res.Schema.ClassName,
		"init":       res.Schema.Init,
		"methods":    res.Schema.Methods,
		"status":     res.Status.String(),
		"reason":     res.Reason,
	})
}

func kindNames(table map[string]kindOps) []string {
	names := make([]string, 0, len(table))
	for k := range table {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
