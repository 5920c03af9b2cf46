package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fwojciec/tabula"
	"github.com/fwojciec/tabula/agent"
	bt "github.com/fwojciec/tabula/bubbletea"
	"github.com/fwojciec/tabula/goldmark"
	"github.com/fwojciec/tabula/tabular"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var _ bt.Backend = (*analystBackend)(nil)

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "tabula",
		Short:         "Chat with your tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(o.stdin)
	root.SetOut(o.stdout)
	root.SetErr(o.stderr)
	root.PersistentFlags().StringVar(&o.settingsPath, "config", o.settingsPath, "Path to the settings file")

	root.AddCommand(
		newRegisterCmd(o),
		newChatCmd(o),
		newAskCmd(o),
		newConversationsCmd(o),
		newConfigCmd(o),
		newDoctorCmd(o),
	)
	return root
}

func addUserFlag(cmd *cobra.Command, o *options) {
	cmd.Flags().StringVarP(&o.user, "user", "u", "", "Username")
}

func newRegisterCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.close()
			password, err := o.password()
			if err != nil {
				return err
			}
			u, err := a.users.Register(o.user, password)
			if err != nil {
				return err
			}
			a.logger.Info("user registered", zap.String("user", u.Username))
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", u.Username)
			return nil
		},
	}
	addUserFlag(cmd, o)
	return cmd
}

func newChatCmd(o *options) *cobra.Command {
	var conversation string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive analyst",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.authenticate()
			if err != nil {
				return err
			}
			defer a.close()
			s, err := a.openSession(o.user, conversation)
			if err != nil {
				return err
			}
			m := bt.New(&analystBackend{app: a}, s, tabula.DefaultTheme())
			if err := bt.Run(cmd.Context(), m); err != nil {
				return fmt.Errorf("TUI: %w", err)
			}
			return nil
		},
	}
	addUserFlag(cmd, o)
	cmd.Flags().StringVarP(&conversation, "conversation", "c", "", "Conversation ID to reopen")
	return cmd
}

func newAskCmd(o *options) *cobra.Command {
	var (
		conversation string
		dataset      string
		width        int
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask one question and print the analysis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.authenticate()
			if err != nil {
				return err
			}
			defer a.close()
			s, err := a.openSession(o.user, conversation)
			if err != nil {
				return err
			}
			backend := &analystBackend{app: a}
			out := cmd.OutOrStdout()
			switch {
			case dataset != "":
				d, err := backend.Upload(s, dataset)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Using %s\n\n", d.Name)
			case conversation != "":
				if datasets := s.Registry.Datasets(); len(datasets) > 0 {
					last := datasets[len(datasets)-1].Name
					if _, err := backend.SelectDataset(s, last); err != nil {
						return err
					}
					fmt.Fprintf(out, "Using %s\n\n", last)
				}
			}

			theme := tabula.DefaultTheme()
			_, err = a.analyst.Ask(cmd.Context(), s, strings.Join(args, " "),
				agent.WithEventHandler(func(e tabula.Event) {
					printEvent(cmd, e, theme, width)
				}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "\nConversation %s\n", s.Conversation.ID)
			return nil
		},
	}
	addUserFlag(cmd, o)
	cmd.Flags().StringVarP(&conversation, "conversation", "c", "", "Conversation ID to continue")
	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "CSV or Excel file to upload first")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width of the reply")
	return cmd
}

func printEvent(cmd *cobra.Command, e tabula.Event, theme tabula.Theme, width int) {
	out := cmd.OutOrStdout()
	switch e := e.(type) {
	case tabula.EventCodeGenerated:
		fmt.Fprintln(out, goldmark.RenderCode(e.Code, "python", theme))
		fmt.Fprintln(out)
	case tabula.EventExecuted:
		r := e.Result
		fmt.Fprint(out, bt.CleanOutput(r.Output))
		if fig, ok := r.Figure(); ok {
			fmt.Fprintf(out, "Chart saved to %s\n", fig.Path)
		}
		if t, ok := r.DerivedTable(); ok {
			fmt.Fprintln(out, tabular.Render(t, 20))
		}
		if r.Failed() {
			fmt.Fprintf(out, "Error: %s\n", r.Error)
		}
		fmt.Fprintln(out)
	case tabula.EventReplied:
		fmt.Fprintln(out, goldmark.Render(e.Text, width, theme))
	}
}

func newConversationsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List your conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.authenticate()
			if err != nil {
				return err
			}
			defer a.close()
			list, err := a.analyst.Conversations().List(o.user)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations yet.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTITLE")
			for _, c := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Date, c.Title)
			}
			return w.Flush()
		},
	}
	addUserFlag(cmd, o)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.authenticate()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.analyst.Conversations().Delete(o.user, args[0]); err != nil {
				return err
			}
			a.logger.Info("conversation deleted", zap.String("user", o.user), zap.String("conversation", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	addUserFlag(del, o)
	cmd.AddCommand(del)
	return cmd
}

func newConfigCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the model configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the model configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.close()
			cfg, err := a.configs.Load()
			if err != nil {
				return err
			}
			printConfig(cmd, cfg)
			return nil
		},
	}, &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Change model configuration fields",
		Long: "Change model configuration fields. Keys: " + strings.Join(configKeys(), ", ") + ".\n" +
			"Setting provider without base_url applies the provider's endpoint preset.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.close()
			cfg, err := a.configs.Load()
			if err != nil {
				return err
			}
			cfg, err = applyConfig(cfg, args)
			if err != nil {
				return err
			}
			if err := a.configs.Save(cfg); err != nil {
				return err
			}
			a.logger.Info("model config updated", zap.String("provider", cfg.Provider), zap.String("model", cfg.ModelName))
			printConfig(cmd, cfg)
			return nil
		},
	})
	return cmd
}

var configSetters = map[string]func(*tabula.ModelConfig, string) error{
	"provider": func(c *tabula.ModelConfig, v string) error {
		switch v {
		case tabula.ProviderOpenAI, tabula.ProviderAzure, tabula.ProviderCustom, tabula.ProviderAnthropic, tabula.ProviderGemini:
			c.Provider = v
			return nil
		}
		return fmt.Errorf("unknown provider %q: %w", v, tabula.ErrValidation)
	},
	"base_url":      func(c *tabula.ModelConfig, v string) error { c.BaseURL = v; return nil },
	"api_key":       func(c *tabula.ModelConfig, v string) error { c.APIKey = v; return nil },
	"model_name":    func(c *tabula.ModelConfig, v string) error { c.ModelName = v; return nil },
	"system_prompt": func(c *tabula.ModelConfig, v string) error { c.SystemPrompt = v; return nil },
	"temperature": func(c *tabula.ModelConfig, v string) error {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 2 {
			return fmt.Errorf("temperature must be a number in [0, 2], got %q: %w", v, tabula.ErrValidation)
		}
		c.Temperature = t
		return nil
	},
	"max_tokens": func(c *tabula.ModelConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("max_tokens must be a positive integer, got %q: %w", v, tabula.ErrValidation)
		}
		c.MaxTokens = n
		return nil
	},
}

// providerPresets are the endpoints applied when the provider changes and
// no base_url is given.
var providerPresets = map[string]string{
	tabula.ProviderOpenAI:    "https://api.openai.com/v1",
	tabula.ProviderAnthropic: "",
	tabula.ProviderGemini:    "",
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// applyConfig applies KEY=VALUE assignments to cfg. Nothing is applied
// when any assignment is invalid.
func applyConfig(cfg tabula.ModelConfig, assignments []string) (tabula.ModelConfig, error) {
	next := cfg
	seen := make(map[string]bool)
	for _, arg := range assignments {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return cfg, fmt.Errorf("expected KEY=VALUE, got %q: %w", arg, tabula.ErrValidation)
		}
		key = strings.TrimSpace(key)
		set, ok := configSetters[key]
		if !ok {
			return cfg, fmt.Errorf("unknown key %q, expected one of %s: %w", key, strings.Join(configKeys(), ", "), tabula.ErrValidation)
		}
		if err := set(&next, strings.TrimSpace(value)); err != nil {
			return cfg, err
		}
		seen[key] = true
	}
	if seen["provider"] && !seen["base_url"] && next.Provider != cfg.Provider {
		if preset, ok := providerPresets[next.Provider]; ok {
			next.BaseURL = preset
		}
	}
	return next, nil
}

func printConfig(cmd *cobra.Command, cfg tabula.ModelConfig) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "provider\t%s\n", cfg.Provider)
	fmt.Fprintf(w, "base_url\t%s\n", cfg.BaseURL)
	fmt.Fprintf(w, "api_key\t%s\n", maskKey(cfg.APIKey))
	fmt.Fprintf(w, "model_name\t%s\n", cfg.ModelName)
	fmt.Fprintf(w, "temperature\t%g\n", cfg.Temperature)
	fmt.Fprintf(w, "max_tokens\t%d\n", cfg.MaxTokens)
	fmt.Fprintf(w, "system_prompt\t%s\n", cfg.SystemPrompt)
	_ = w.Flush()
}

// maskKey keeps the last four characters of a credential.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func newDoctorCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the Python environment and the model configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.open()
			if err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "storage   %s\n", a.layout.Root())

			var problems []error
			cfg, err := a.configs.Load()
			if err != nil {
				return err
			}
			if a.apiKey != "" {
				cfg.APIKey = a.apiKey
			}
			fmt.Fprintf(out, "provider  %s %s\n", cfg.Provider, cfg.ModelName)
			if cfg.APIKey == "" {
				problems = append(problems, tabula.ErrMissingCredential)
			} else if _, err := o.providers(cmd.Context(), cfg); err != nil {
				problems = append(problems, err)
			}

			env, err := a.executor.Probe(cmd.Context())
			if err != nil {
				problems = append(problems, err)
			} else {
				fmt.Fprintf(out, "python    %s (%s)\n", env.Interpreter, env.Version)
				if len(env.Missing) > 0 {
					fmt.Fprintf(out, "missing   %s\n", strings.Join(env.Missing, ", "))
				}
				if !env.Ready() {
					problems = append(problems, errors.New("python: pandas, numpy and matplotlib are required"))
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(out, "problem   %v\n", p)
				}
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
