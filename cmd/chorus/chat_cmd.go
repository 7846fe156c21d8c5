package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shillcollin/chorus"
	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/obs"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive multi-turn chat with one provider",
	Long: `Start a REPL that keeps conversation history across turns.

Commands inside the REPL:
  /provider <name>   switch provider, keeping the history
  /save <file>       write the conversation to a JSON file
  /load <file>       restore a conversation from a JSON file
  /history           print the conversation so far
  /clear             drop the history
  /exit              leave`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("provider", "p", "", "Provider to chat with (default: config or first configured)")
	chatCmd.Flags().StringP("model", "m", "", "Model override")
	chatCmd.Flags().String("system", "", "System prompt")
	rootCmd.AddCommand(chatCmd)
}

type chatSession struct {
	client    *chorus.Client
	conv      *chorus.Conversation
	provider  string
	sessionID string
	turn      int
	reader    *bufio.Reader
}

func runChat(cmd *cobra.Command, args []string) error {
	client, cfg, err := buildClient()
	if err != nil {
		return err
	}

	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = cfg.DefaultProvider
	}
	if provider == "" {
		if configured := client.Providers(); len(configured) > 0 {
			provider = configured[0]
		}
	}
	if provider == "" {
		return errors.New("no providers configured; set API keys in the environment")
	}
	if !client.HasProvider(provider) {
		return fmt.Errorf("provider %q not configured; run 'chorus providers'", provider)
	}

	system, _ := cmd.Flags().GetString("system")
	if system == "" {
		system = cfg.System
	}

	convOpts := []chorus.ConversationOption{chorus.ConvProvider(provider)}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		convOpts = append(convOpts, chorus.ConvModel(model))
	}
	if system != "" {
		convOpts = append(convOpts, chorus.ConvSystem(system))
	}

	session := &chatSession{
		client:    client,
		conv:      client.Conversation(convOpts...),
		provider:  provider,
		sessionID: uuid.NewString(),
		reader:    bufio.NewReader(os.Stdin),
	}

	fmt.Printf("chorus chat — provider %s. Type /exit to leave, /provider <name> to switch.\n\n", provider)

	ctx := cmd.Context()
	for {
		fmt.Print("You: ")
		line, err := session.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if done := session.command(line); done {
				return nil
			}
			continue
		}

		if err := session.processTurn(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "turn error: %v\n", err)
		}
	}
}

func (s *chatSession) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *chatSession) processTurn(ctx context.Context, text string) error {
	start := time.Now()
	result, err := s.conv.Say(ctx, text)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("\nAssistant (%s / %s):\n%s\n\n", s.provider, result.Model(), result.Text())
	fmt.Printf("Usage: input=%d output=%d total=%d (%.2fs)\n\n",
		result.InputTokens(), result.OutputTokens(), result.TotalTokens(), elapsed.Seconds())

	s.turn++
	obs.LogCompletion(ctx, obs.Completion{
		Provider:     result.Provider(),
		Model:        result.Model(),
		RequestID:    uuid.NewString(),
		Input:        obs.MessagesFromCore(s.conv.Messages()),
		Output:       obs.MessageFromCore(core.AssistantMessage(result.Text())),
		Usage:        obs.UsageFromCore(result.Usage()),
		LatencyMS:    elapsed.Milliseconds(),
		Metadata:     map[string]any{"session_id": s.sessionID, "turn": strconv.Itoa(s.turn)},
		CreatedAtUTC: time.Now().UTC().UnixMilli(),
	})
	return nil
}

// command handles a /-prefixed REPL command; true means leave the loop.
func (s *chatSession) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/clear":
		s.conv.Clear()
		fmt.Println("history cleared")
	case "/history":
		for _, msg := range s.conv.Messages() {
			fmt.Printf("%s: %s\n", msg.Role, msg.Content)
		}
	case "/provider":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /provider <name>")
			break
		}
		s.switchProvider(fields[1])
	case "/save":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /save <file>")
			break
		}
		if err := s.save(fields[1]); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
		}
	case "/load":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "usage: /load <file>")
			break
		}
		if err := s.load(fields[1]); err != nil {
			fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", fields[0])
	}
	return false
}

// switchProvider rebinds the session to another provider, carrying the
// history and system prompt over. Model overrides do not carry; they are
// provider-specific.
func (s *chatSession) switchProvider(name string) {
	if !s.client.HasProvider(name) {
		fmt.Fprintf(os.Stderr, "provider %q not configured\n", name)
		return
	}

	opts := []chorus.ConversationOption{
		chorus.ConvProvider(name),
		chorus.ConvMessages(s.conv.Messages()...),
	}
	if system := s.conv.System(); system != "" {
		opts = append(opts, chorus.ConvSystem(system))
	}
	s.conv = s.client.Conversation(opts...)
	s.provider = name
	fmt.Printf("switched to %s\n", name)
}

func (s *chatSession) save(path string) error {
	data, err := json.MarshalIndent(s.conv, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("saved %d messages to %s\n", s.conv.MessageCount(), path)
	return nil
}

func (s *chatSession) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	conv := &chorus.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		return err
	}
	conv.Attach(s.client)

	provider := conv.Provider()
	if provider == "" {
		provider = s.provider
	}
	if !s.client.HasProvider(provider) {
		return fmt.Errorf("provider %q from %s not configured", provider, path)
	}

	s.conv = conv
	s.provider = provider
	fmt.Printf("restored %d messages from %s (provider %s)\n", conv.MessageCount(), path, provider)
	return nil
}
