// criteriactl compiles criteria documents to SQL predicates from the
// command line. Each input file holds one JSON criteria sequence; the
// tool prints the predicate, the parameter bindings and the relation
// joins the criteria imply. Failing files do not stop the run: every
// failure is reported at the end.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/render"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	alias  string
	style  string
	offset int
	asJSON bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "criteriactl [flags] <criteria.json> ...",
		Short: "Compile criteria documents to SQL predicates",
		Long: `criteriactl lowers JSON criteria documents to SQL.

A document is one JSON array of criteria elements: objects for named
equalities, [field, operator, value] arrays for operator clauses and
["or"|"and"|"not", [...]] arrays for nested groups. Pass "-" to read a
document from stdin.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.alias, "alias", "a", "", "root alias to qualify single-segment fields with")
	cmd.Flags().StringVarP(&opts.style, "style", "s", "dollar", "placeholder style: named, question or dollar")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "number of positional placeholders already taken")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "machine-readable output")

	return cmd
}

// run compiles every document and reports per-file failures together,
// after the successful ones have printed.
func run(opts *options, paths []string, out io.Writer) error {
	var failures error
	for _, path := range paths {
		payload, err := readDocument(path)
		if err != nil {
			failures = multierror.Append(failures, errors.Wrap(err, path))
			continue
		}
		doc, err := compileDocument(opts, path, payload)
		if err != nil {
			failures = multierror.Append(failures, errors.Wrap(err, path))
			continue
		}
		if err := printDocument(opts, doc, out); err != nil {
			failures = multierror.Append(failures, errors.Wrap(err, path))
		}
	}
	return failures
}

func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// document is one compiled criteria file.
type document struct {
	File      string  `json:"file"`
	Predicate string  `json:"predicate"`
	Params    []param `json:"params"`
	Joins     []join  `json:"joins"`
}

type param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type join struct {
	Kind      string `json:"kind"`
	Relation  string `json:"relation"`
	Alias     string `json:"alias"`
	Condition string `json:"condition,omitempty"`
}

func compileDocument(opts *options, name string, payload []byte) (*document, error) {
	var raw []any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(err, "parse criteria document")
	}

	style, err := styleFromFlag(opts.style)
	if err != nil {
		return nil, err
	}

	doc := &document{File: name}
	compiled := compiler.Compile(opts.alias, raw)
	if compiled.IsNothing() {
		return doc, nil
	}
	result := compiled.Unwrap()

	rendered, err := render.Render(result.Predicate,
		render.Style(style),
		render.PlaceholderOffset(opts.offset),
	)
	if err != nil {
		return nil, err
	}
	doc.Predicate = rendered.SQL
	for i, arg := range rendered.Args {
		doc.Params = append(doc.Params, param{Name: rendered.Names[i], Value: arg})
	}

	for _, spec := range result.Joins {
		described, err := describeJoin(spec)
		if err != nil {
			return nil, err
		}
		doc.Joins = append(doc.Joins, described)
	}
	return doc, nil
}

func styleFromFlag(flag string) (render.PlaceholderStyle, error) {
	switch flag {
	case "named":
		return render.StyleNamed, nil
	case "question":
		return render.StyleQuestion, nil
	case "dollar":
		return render.StyleDollar, nil
	}
	return "", errors.Errorf("unknown placeholder style %q", flag)
}

func describeJoin(spec compiler.JoinSpec) (join, error) {
	described := join{
		Kind:     string(spec.Kind()),
		Relation: spec.RelationPath(),
		Alias:    spec.Alias(),
	}
	if spec.Condition().IsSome() {
		condition := spec.Condition().Unwrap()
		rendered, err := render.Render(condition.Expr(), render.Style(render.StyleQuestion))
		if err != nil {
			return join{}, err
		}
		described.Condition = fmt.Sprintf("%s %s", condition.Kind(), rendered.SQL)
	}
	return described, nil
}

func printDocument(opts *options, doc *document, out io.Writer) error {
	if opts.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(doc)
	}

	fmt.Fprintln(out, doc.File)
	if doc.Predicate == "" {
		fmt.Fprintln(out, "  (no criteria)")
		return nil
	}
	fmt.Fprintf(out, "  predicate: %s\n", doc.Predicate)
	for _, p := range doc.Params {
		fmt.Fprintf(out, "  param:     %s = %v\n", p.Name, p.Value)
	}
	for _, j := range doc.Joins {
		fmt.Fprintf(out, "  join:      %s %s AS %s", j.Kind, j.Relation, j.Alias)
		if j.Condition != "" {
			fmt.Fprintf(out, " %s", j.Condition)
		}
		fmt.Fprintln(out)
	}
	return nil
}
