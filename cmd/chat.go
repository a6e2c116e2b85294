package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightloom/internal/ai"
	"github.com/KaramelBytes/insightloom/internal/dashboard"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

var (
	chatProvider    string
	chatModel       string
	chatTimeoutSec  int
	chatDryRun      bool
	chatPromptLimit int
	chatMaxTokens   int
	chatTemp        float64
	chatJSON        bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <name> <query...>",
	Short: "Ask an AI model to update or add charts on a dashboard",
	Example: `  insightloom chat sales "show revenue by region as a pie chart"
  insightloom chat sales "compare units and revenue" --provider ollama --model llama3.1:8b
  insightloom chat sales "add a monthly trend" --dry-run`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args[1:], " "))
		st, d, err := loadDashboard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer st.Close()

		opts := serviceOptions{
			MaxTokens:   chatMaxTokens,
			PromptLimit: chatPromptLimit,
		}
		if cmd.Flags().Changed("temp") {
			opts.Temperature = &chatTemp
		}
		if chatTimeoutSec > 0 {
			opts.ChatTimeout = time.Duration(chatTimeoutSec) * time.Second
		}

		if chatDryRun {
			prompt := newService(opts).Prompt(d, query)
			msgs, err := prompt.Messages()
			if err != nil {
				return err
			}
			tokens := 0
			for _, m := range msgs {
				fmt.Printf("--- %s ---\n%s\n", m.Role, m.Content)
				tokens += utils.CountTokens(m.Content)
			}
			fmt.Printf("Estimated prompt tokens: %d\n", tokens)
			return nil
		}

		rt, providerName, model, err := buildRuntime(settings(), runtimeOptions{ProviderFlag: chatProvider, ModelFlag: chatModel})
		if err != nil {
			return err
		}
		opts.Runtime = rt
		opts.Model = model
		svc := newService(opts)

		if chatPromptLimit > 0 {
			full := svc.Prompt(d, query)
			full.TokenLimit = 0
			if n, err := full.Tokens(); err == nil && n > chatPromptLimit {
				fmt.Printf("⚠ Prompt exceeds limit (%d > %d). Truncating before send...\n", n, chatPromptLimit)
			}
		}

		res, err := svc.Chat(cmd.Context(), d, query)
		if err != nil {
			return chatErrorHint(err, providerName, model)
		}
		if len(res.Updated)+len(res.Added) > 0 {
			if err := st.Save(cmd.Context(), d); err != nil {
				return err
			}
		}

		if chatJSON {
			b, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
			fmt.Println(string(b))
			return nil
		}
		if res.Response != "" {
			fmt.Println(res.Response)
		}
		for _, w := range res.Warnings {
			fmt.Printf("⚠ %s\n", w)
		}
		for _, id := range res.Updated {
			fmt.Printf("✓ Updated chart %s\n", chartTitle(d, id))
		}
		for _, id := range res.Added {
			fmt.Printf("✓ Added chart %s\n", chartTitle(d, id))
		}
		if res.RequestID != "" {
			fmt.Printf("Request ID: %s\n", res.RequestID)
		}
		if u := res.Usage; u.TotalTokens > 0 {
			if cost, ok := ai.EstimateCostUSD(model, u.PromptTokens, u.CompletionTokens); ok && cost > 0 {
				fmt.Printf("Tokens: %d (≈$%.4f)\n", u.TotalTokens, cost)
			} else {
				fmt.Printf("Tokens: %d\n", u.TotalTokens)
			}
		}
		return nil
	},
}

func chartTitle(d *dashboard.Dashboard, id string) string {
	if i, ok := d.ChartIndex(id); ok && d.Charts[i].Title != "" {
		return fmt.Sprintf("%q", d.Charts[i].Title)
	}
	return id
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatProvider, "provider", "", "completion backend: openrouter|ollama|gemini (default from config)")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model name (default from config or provider)")
	chatCmd.Flags().IntVar(&chatTimeoutSec, "timeout-sec", 0, "chat timeout in seconds (default from config)")
	chatCmd.Flags().BoolVar(&chatDryRun, "dry-run", false, "print the prompt without calling a model")
	chatCmd.Flags().IntVar(&chatPromptLimit, "prompt-limit", 0, "truncate the prompt to this many tokens (0 = no limit)")
	chatCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 0, "max response tokens (default from config)")
	chatCmd.Flags().Float64Var(&chatTemp, "temp", 0, "sampling temperature (default from config)")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "print the chat result as JSON")
}
