package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/gcpimg"
	"github.com/pthm/gcpimg/lib/cdn"
	"github.com/pthm/gcpimg/lib/element"
)

var urlCmd = &cobra.Command{
	Use:   "url [attribute=value]...",
	Short: "Print the CDN URLs for a set of image attributes",
	Long: `Evaluate image attributes the way a page would and print the
resulting src, srcset and <source> entries.

Attributes are name=value pairs; boolean attributes may be given bare.

Examples:
  gcpimg url src=https://lh3.googleusercontent.com/abc size=640
  gcpimg url src=... rotate=90 flip=h blur radius=12
  gcpimg url src=... darksrc=... --webp --ect 3g --json
  gcpimg url src=... crop=circular --html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runURL,
}

func init() {
	rootCmd.AddCommand(urlCmd)

	urlCmd.Flags().String("convention", "", "CDN convention: picture, legacy or animated (default from config)")
	urlCmd.Flags().String("ect", "", "effective connection type, e.g. 4g or 3g")
	urlCmd.Flags().Bool("webp", false, "the client supports WebP")
	urlCmd.Flags().Bool("json", false, "output as JSON")
	urlCmd.Flags().Bool("html", false, "output <picture> markup")
}

// printSurface records what the element assigns.
type printSurface struct {
	src     string
	srcset  string
	sources []cdn.Source
	alt     string
}

func (s *printSurface) SetSrc(src string)               { s.src = src }
func (s *printSurface) SetSrcset(srcset string)         { s.srcset = srcset }
func (s *printSurface) SetSources(sources []cdn.Source) { s.sources = sources }
func (s *printSurface) SetAlt(alt string)               { s.alt = alt }
func (s *printSurface) Reveal()                         {}
func (s *printSurface) HidePlaceholder()                {}

func parseAttributeArgs(args []string) (map[string]string, error) {
	attrs := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, _ := strings.Cut(arg, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !cdn.Known(name) {
			return nil, fmt.Errorf("%w: %q", cdn.ErrUnknownAttribute, name)
		}
		attrs[name] = value
	}
	return attrs, nil
}

func runURL(cmd *cobra.Command, args []string) error {
	convName, _ := cmd.Flags().GetString("convention")
	ect, _ := cmd.Flags().GetString("ect")
	webp, _ := cmd.Flags().GetBool("webp")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	htmlOutput, _ := cmd.Flags().GetBool("html")

	conv := cfg.Convention()
	if convName != "" {
		var err error
		if conv, err = cdn.ConventionByName(convName); err != nil {
			return err
		}
	}

	attrs, err := parseAttributeArgs(args)
	if err != nil {
		return err
	}

	surface := &printSurface{}
	el := element.New(element.Options{
		Convention: conv,
		Network:    element.FixedNetwork(ect),
		Formats:    element.WebP(webp),
		Surface:    surface,
		Logger:     logger,
	})
	if err := el.Attach(attrs); err != nil {
		return err
	}
	if surface.src == "" {
		return gcpimg.ErrMissingSource
	}

	w := cmd.OutOrStdout()
	switch {
	case htmlOutput:
		if err := gcpimg.Picture(el.Attributes(), el.Rendition()).Render(cmd.Context(), w); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return nil

	case jsonOutput:
		type source struct {
			Srcset string `json:"srcset"`
			Media  string `json:"media,omitempty"`
			Type   string `json:"type,omitempty"`
		}
		out := struct {
			Convention string   `json:"convention"`
			Connection string   `json:"connection"`
			Suffix     string   `json:"suffix"`
			Src        string   `json:"src"`
			Srcset     string   `json:"srcset,omitempty"`
			Sources    []source `json:"sources,omitempty"`
		}{
			Convention: conv.Name,
			Connection: el.Capabilities().Connection.String(),
			Suffix:     el.Rendition().Suffix,
			Src:        surface.src,
			Srcset:     surface.srcset,
		}
		for _, s := range surface.sources {
			out.Sources = append(out.Sources, source(s))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "src:    %s\n", surface.src)
	if surface.srcset != "" {
		fmt.Fprintf(w, "srcset: %s\n", surface.srcset)
	}
	for _, s := range surface.sources {
		fmt.Fprintf(w, "source: %s", s.Srcset)
		if s.Media != "" {
			fmt.Fprintf(w, " media=%q", s.Media)
		}
		if s.Type != "" {
			fmt.Fprintf(w, " type=%q", s.Type)
		}
		fmt.Fprintln(w)
	}
	return nil
}
