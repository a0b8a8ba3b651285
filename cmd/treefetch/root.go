package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/samvad-hq/samvad-httpclient/internal/app"
	"github.com/samvad-hq/samvad-httpclient/internal/config"
	"github.com/samvad-hq/samvad-httpclient/internal/logger"
	"github.com/samvad-hq/samvad-httpclient/pkg/httpclient"
	"github.com/samvad-hq/samvad-httpclient/pkg/jsontree"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	profile     string
	user        string
	password    string
	contentType string
	data        string
	headers     bool
	child       string
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "treefetch",
		Short:         "Issue HTTP requests and inspect JSON responses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.profile, "profile", "", "Profile id from profiles_file")
	root.PersistentFlags().StringVar(&flags.user, "user", "", "Basic-auth user (overrides profile and config)")
	root.PersistentFlags().StringVar(&flags.password, "password", "", "Basic-auth password")
	root.PersistentFlags().BoolVar(&flags.headers, "headers", false, "Print response headers")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		root.AddCommand(newMethodCmd(out, flags, method))
	}
	root.AddCommand(newTreeCmd(out, flags), newCheckCmd(out), newLastCmd(out, flags))
	return root
}

func newMethodCmd(out io.Writer, flags *rootFlags, method string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <url>", strings.ToLower(method)),
		Short: fmt.Sprintf("Send an HTTP %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFetcher(flags, func(f *app.Fetcher) error {
				call := app.Call{Method: method, Target: args[0], ContentType: flags.contentType}
				if method == http.MethodPost || method == http.MethodPut {
					call.Body = []byte(flags.data)
				}
				resp, err := f.Do(cmd.Context(), call)
				if err != nil {
					return err
				}
				printResponse(out, resp.Code, resp.Headers, resp.Body, flags.headers)
				if resp.TransportFailed() {
					return fmt.Errorf("request to %s did not complete", f.URL(args[0]))
				}
				return nil
			})
		},
	}
	if method == http.MethodPost || method == http.MethodPut {
		cmd.Flags().StringVar(&flags.contentType, "content-type", "", "Request content type")
		cmd.Flags().StringVar(&flags.data, "data", "", "Request body")
	}
	return cmd
}

func newTreeCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <url>",
		Short: "Fetch a URL, parse the JSON response and check it for error payloads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFetcher(flags, func(f *app.Fetcher) error {
				var body []byte
				if cmd.Flags().Changed("data") {
					body = []byte(flags.data)
				}
				tree, knownErr, err := f.Tree(cmd.Context(), args[0], body)
				if err != nil {
					return err
				}
				if err := printTree(out, tree); err != nil {
					return err
				}
				if flags.child != "" {
					fmt.Fprintf(out, "has %q: %v\n", flags.child, httpclient.HasChild(tree, flags.child))
				}
				if knownErr {
					return fmt.Errorf("response from %s is an error payload", f.URL(args[0]))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&flags.data, "data", "", "Form body; switches the request to POST")
	cmd.Flags().StringVar(&flags.child, "child", "", "Report whether the tree has this top-level key")
	return cmd
}

func newCheckCmd(out io.Writer) *cobra.Command {
	var values bool
	cmd := &cobra.Command{
		Use:   "check <file|->",
		Short: "Parse a saved JSON response and check it for error payloads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if _, err := logger.Init(cfg); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Close()

			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			tree, err := jsontree.Parse(raw)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			if values {
				vals, err := jsontree.Values(tree)
				if err != nil {
					return err
				}
				for _, v := range vals {
					fmt.Fprintln(out, v)
				}
			}

			matched, err := httpclient.CheckErrorShape(tree)
			fmt.Fprintf(out, "error payload: %v\n", matched)
			return err
		},
	}
	cmd.Flags().BoolVar(&values, "values", false, "Print the leaf values of the top-level children")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return raw, nil
}

func newLastCmd(out io.Writer, flags *rootFlags) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "last <url>",
		Short: "Show the recorded response for a URL from the history store",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withFetcher(flags, func(f *app.Fetcher) error {
				entry, ok, err := f.Last(method, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no recorded response for %s %s", method, f.URL(args[0]))
				}
				fmt.Fprintf(out, "fetched at %s\n", entry.FetchedAt.Format("2006-01-02T15:04:05Z07:00"))
				printResponse(out, entry.Code, entry.Headers, entry.Body, flags.headers)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", http.MethodGet, "Method of the recorded call")
	return cmd
}

func withFetcher(flags *rootFlags, fn func(*app.Fetcher) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	f, err := app.NewFetcher(cfg, logger.Default(), app.Options{
		ProfileID: flags.profile,
		User:      flags.user,
		Password:  flags.password,
	})
	if err != nil {
		logger.ErrorObj("failed to initialize fetcher", "error", err)
		return err
	}

	return errors.Join(fn(f), f.Close())
}

func printResponse(out io.Writer, code int, headers map[string]string, body []byte, withHeaders bool) {
	fmt.Fprintf(out, "status: %d\n", code)
	if withHeaders {
		keys := make([]string, 0, len(headers))
		for k := range headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s: %s\n", k, headers[k])
		}
	}
	fmt.Fprintf(out, "\n%s\n", body)
}

func printTree(out io.Writer, tree *jsontree.Tree) error {
	raw, err := tree.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("indent tree: %w", err)
	}
	fmt.Fprintln(out, buf.String())
	return nil
}
