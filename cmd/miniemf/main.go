// Command miniemf is a small CLI around the runtime meta-object framework:
// validate, convert and generate documentation for XMI model files, against
// one of the schemas compiled into this binary. Its flag-parsing discipline
// (ff/v3 over a flag.FlagSet, SWCAT_-style env var prefix) is carried over
// from the teacher's cmd/swcat, split into one FlagSet per subcommand.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/peterbourgon/ff/v3"

	"github.com/dnswlt/miniemf/internal/config"
	"github.com/dnswlt/miniemf/internal/emf"
	"github.com/dnswlt/miniemf/internal/family"
	"github.com/dnswlt/miniemf/internal/gitsource"
	"github.com/dnswlt/miniemf/internal/schemadocs"
	"github.com/dnswlt/miniemf/internal/xmi"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// schemas is the registry of schemas this binary knows how to instantiate.
// Real deployments of this framework declare their own TypeRegistry in Go
// code (§2); the CLI only needs to know which one the user asked for.
var schemas = map[string]func() *emf.TypeRegistry{
	"family": func() *emf.TypeRegistry { return family.NewSchema().Types },
}

func resolveSchema(name string) (*emf.TypeRegistry, error) {
	factory, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q (known: family)", name)
	}
	return factory(), nil
}

func resolveCodec(cfgPath, schemaName string) (*xmi.Codec, error) {
	bundle := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		bundle = loaded
	}
	flavor, err := bundle.XMI.ResolveFlavor()
	if err != nil {
		return nil, err
	}
	ns := bundle.XMI.Namespace
	if schemaName != "" {
		ns = schemaName
	}
	return xmi.NewCodec(flavor, ns), nil
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	schemaName := fs.String("schema", "family", "Name of the compiled-in schema to validate against")
	configFile := fs.String("config", "", "Path to a miniemf config YAML file")
	path := fs.String("file", "", "Path to the XMI model file to validate")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("MINIEMF")); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("validate: -file is required")
	}

	types, err := resolveSchema(*schemaName)
	if err != nil {
		return err
	}
	codec, err := resolveCodec(*configFile, *schemaName)
	if err != nil {
		return err
	}
	m, err := codec.Read(types, *path)
	if err != nil {
		return err
	}

	var errs []string
	m.ValidateModel(&errs)
	if len(errs) == 0 {
		log.Printf("%s: valid", *path)
		return nil
	}
	for _, e := range errs {
		log.Printf("%s: %s", *path, e)
	}
	return fmt.Errorf("validate: %d issue(s) found", len(errs))
}

func cmdConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	schemaName := fs.String("schema", "family", "Name of the compiled-in schema")
	configFile := fs.String("config", "", "Path to a miniemf config YAML file")
	in := fs.String("in", "", "Input XMI file")
	out := fs.String("out", "", "Output XMI file")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("MINIEMF")); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("convert: both -in and -out are required")
	}

	types, err := resolveSchema(*schemaName)
	if err != nil {
		return err
	}
	codec, err := resolveCodec(*configFile, *schemaName)
	if err != nil {
		return err
	}
	m, err := codec.Read(types, *in)
	if err != nil {
		return err
	}
	if err := codec.Write(m, *out, "miniemf", xmi.KindModel); err != nil {
		return err
	}
	log.Printf("wrote %s", *out)
	return nil
}

func cmdCloneSubset(args []string) error {
	fs := flag.NewFlagSet("clone-subset", flag.ContinueOnError)
	schemaName := fs.String("schema", "family", "Name of the compiled-in schema")
	configFile := fs.String("config", "", "Path to a miniemf config YAML file")
	in := fs.String("in", "", "Input XMI file")
	out := fs.String("out", "", "Output XMI file for the extracted subset")
	typeName := fs.String("type", "", "Type of the seed object")
	name := fs.String("name", "", "Name of the seed object")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("MINIEMF")); err != nil {
		return err
	}
	if *in == "" || *out == "" || *typeName == "" || *name == "" {
		return fmt.Errorf("clone-subset: -in, -out, -type and -name are all required")
	}

	types, err := resolveSchema(*schemaName)
	if err != nil {
		return err
	}
	codec, err := resolveCodec(*configFile, *schemaName)
	if err != nil {
		return err
	}
	m, err := codec.Read(types, *in)
	if err != nil {
		return err
	}
	seedType, ok := types.ByName(*typeName)
	if !ok {
		return fmt.Errorf("clone-subset: unknown type %q", *typeName)
	}
	seed, ok := m.GetByName(seedType, *name)
	if !ok {
		return fmt.Errorf("clone-subset: no %s named %q", *typeName, *name)
	}

	sub := m.CloneSubset([]*emf.Object{seed})
	if err := codec.Write(sub, *out, "miniemf", xmi.KindExport); err != nil {
		return err
	}
	log.Printf("wrote subset rooted at %s %q to %s", *typeName, *name, *out)
	return nil
}

func cmdDocs(args []string) error {
	fs := flag.NewFlagSet("docs", flag.ContinueOnError)
	schemaName := fs.String("schema", "family", "Name of the compiled-in schema to document")
	outDir := fs.String("out", "docs", "Output directory for generated reference pages")
	html := fs.Bool("html", false, "Also render HTML fragments alongside the Markdown pages")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("MINIEMF")); err != nil {
		return err
	}

	types, err := resolveSchema(*schemaName)
	if err != nil {
		return err
	}
	gen := schemadocs.NewGenerator(types)
	if err := gen.Generate(*outDir, *html); err != nil {
		return err
	}
	log.Printf("wrote schema reference for %q to %s", *schemaName, *outDir)
	return nil
}

func cmdFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	url := fs.String("git-url", "", "URL of the git repository to read model files from")
	ref := fs.String("git-ref", "main", "Git ref (branch, tag or commit) to read from")
	dir := fs.String("git-dir", ".", "Directory within the repository to search for model files")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("MINIEMF")); err != nil {
		return err
	}
	if *url == "" {
		return fmt.Errorf("fetch: -git-url is required")
	}

	loader, err := gitsource.NewLoader(*url, nil)
	if err != nil {
		return err
	}
	files, err := loader.ListModelFiles(*ref, *dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `miniemf %s

Usage: miniemf <command> [flags]

Commands:
  validate       Read an XMI model file and report mandatory-link violations
  convert        Read an XMI model file and re-encode it (flavor normalization)
  clone-subset   Extract a seed object and everything reachable through its links
  docs           Generate Markdown/HTML schema reference pages
  fetch          List model files in a remote git repository

Run "miniemf <command> -h" for flags of a specific command.
`, Version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = cmdValidate(os.Args[2:])
	case "convert":
		err = cmdConvert(os.Args[2:])
	case "clone-subset":
		err = cmdCloneSubset(os.Args[2:])
	case "docs":
		err = cmdDocs(os.Args[2:])
	case "fetch":
		err = cmdFetch(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
