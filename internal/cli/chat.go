package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opteee-ai/opteee/internal/botapi"
	"github.com/opteee-ai/opteee/internal/format"
	"github.com/opteee-ai/opteee/internal/history"
	"github.com/opteee-ai/opteee/internal/logging"
)

func newChatCmd() *cobra.Command {
	var prompt string
	var localHistory bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask the OPTEEE knowledge base (interactive without -p)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}
			api, err := apiClient(cfg, 0)
			if err != nil {
				return err
			}

			runner := &chatRunner{
				api:          api,
				recent:       cfg.History.RecentMessages,
				localHistory: localHistory,
			}

			if strings.TrimSpace(prompt) != "" {
				answer, err := runner.Ask(cmd.Context(), strings.TrimSpace(prompt))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
				return err
			}

			return runChatREPL(cmd.Context(), runner, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "One-shot question (skips the REPL)")
	cmd.Flags().BoolVar(&localHistory, "local-history", false,
		"Assemble conversation context client-side instead of using server conversations")

	return cmd
}

// chatRunner holds one CLI conversation. In server mode it rides a
// server-side conversation id; in local-history mode it sanitizes and
// replays recent turns inside the query instead.
type chatRunner struct {
	api          *botapi.Client
	recent       int
	localHistory bool

	conversationID string
	turns          []history.Turn
}

func (r *chatRunner) Ask(ctx context.Context, input string) (string, error) {
	query := input
	if r.localHistory {
		if block := history.BuildContext(r.turns, r.recent); block != "" {
			query = "Previous conversation:\n" + block + "\n\nQuestion: " + input
		}
	} else if r.conversationID == "" {
		id, err := r.api.CreateConversation(ctx)
		if err != nil {
			// Degrade to stateless chat; the question still goes through.
			logging.Logger().Warn("create conversation failed", "err", err)
		} else {
			r.conversationID = id
		}
	}

	resp, err := r.api.Chat(ctx, query, r.conversationID)
	if err != nil {
		return "", err
	}
	if resp.ConversationID != "" {
		r.conversationID = resp.ConversationID
	}
	r.turns = append(r.turns,
		history.Turn{Role: history.RoleUser, Content: input},
		history.Turn{Role: history.RoleAssistant, Content: resp.Answer},
	)

	return renderAnswer(resp), nil
}

func (r *chatRunner) Reset() {
	r.conversationID = ""
	r.turns = nil
}

func (r *chatRunner) Health(ctx context.Context) string {
	status, err := r.api.Health(ctx)
	if err != nil {
		return fmt.Sprintf("unreachable: %v", err)
	}
	if !status.Healthy() {
		return fmt.Sprintf("reachable, status %q", status.Status)
	}
	return "healthy"
}

func renderAnswer(resp *botapi.ChatResponse) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(resp.Answer))

	if len(resp.Sources) > 0 {
		b.WriteString("\n\nSources:")
		for i, src := range resp.Sources {
			title := src.Title
			if title == "" {
				title = "Untitled Video"
			}
			b.WriteString(fmt.Sprintf("\n%d. %s", i+1, title))
			if src.StartTimestampSeconds > 0 {
				b.WriteString(" @ " + format.FormatTime(src.StartTimestampSeconds))
			}
			if url := src.VideoURLWithTimestamp; url != "" {
				b.WriteString("\n   " + url)
			} else if src.URL != "" {
				b.WriteString("\n   " + src.URL)
			}
		}
	}
	return b.String()
}
