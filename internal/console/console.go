// internal/console/console.go
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"car-recommender/internal/models"
	"car-recommender/internal/recommender"
)

const (
	prompt       = "> "
	historyLimit = 10
	helpText     = `Describe your situation and what you need from a car, then press Enter.
The assistant recommends cars with an estimated price and insurance cost.

Commands:
  :clear    clear the input and any shown result
  :health   check the recommendation service
  :history  show your recent questions
  :help     show this help
  :quit     exit`
)

// HealthChecker reports whether the recommendation service is up.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HistoryReader lists recent submissions, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, userID string, n int) ([]models.Submission, error)
}

// Logger interface definition
type Logger interface {
	Debug(msg string, fields map[string]interface{})
}

type Options struct {
	Health  HealthChecker
	History HistoryReader
	UserID  string
	Logger  Logger
}

// Console drives a recommender.Session from line oriented input.
type Console struct {
	session *recommender.Session
	health  HealthChecker
	history HistoryReader
	userID  string
	logger  Logger
	out     io.Writer
	printer *message.Printer
}

func New(session *recommender.Session, out io.Writer, opts Options) *Console {
	return &Console{
		session: session,
		health:  opts.Health,
		history: opts.History,
		userID:  opts.UserID,
		logger:  opts.Logger,
		out:     out,
		printer: message.NewPrinter(language.English),
	}
}

// Run reads questions and commands from in until EOF, :quit or ctx ends.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(c.out, prompt)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			if quit := c.command(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		} else {
			c.Ask(ctx, line)
		}
		fmt.Fprint(c.out, prompt)
	}
	return scanner.Err()
}

// Ask submits question and renders the settled state. Blank input is
// ignored because the submit control is disabled for it.
func (c *Console) Ask(ctx context.Context, question string) recommender.State {
	c.session.SetText(question)
	if !c.session.CanSubmit() {
		return c.session.State()
	}

	fmt.Fprintln(c.out, "Thinking…")
	st, err := c.session.Submit(ctx)
	if err != nil && c.logger != nil {
		c.logger.Debug("submit settled with error", map[string]interface{}{
			"requestId": st.RequestID(),
			"error":     err.Error(),
		})
	}
	c.Render(st)
	return st
}

// Render prints the visible part of st.
func (c *Console) Render(st recommender.State) {
	switch st.Phase() {
	case recommender.PhaseError:
		fmt.Fprintf(c.out, "Error: %s\n", st.Message())
	case recommender.PhaseResult:
		recs := st.Recommendations()
		fmt.Fprintln(c.out, "Top picks")
		if len(recs) == 0 {
			fmt.Fprintln(c.out, "  (no matches)")
		}
		for i, rec := range recs {
			fmt.Fprintf(c.out, "%d. %s\n", i+1, c.FormatRecommendation(rec))
		}
	case recommender.PhasePending:
		fmt.Fprintln(c.out, "Thinking…")
	}
}

// FormatRecommendation renders one list entry, e.g.
// "Toyota RAV4 · Score: 0.92 · Est. price: $28,000 · Est. insurance: $120/mo".
func (c *Console) FormatRecommendation(rec models.Recommendation) string {
	return fmt.Sprintf("%s · Score: %.2f · Est. price: $%s · Est. insurance: $%s/mo",
		rec.Label,
		rec.Score,
		c.printer.Sprintf("%v", number.Decimal(rec.Price, number.MaxFractionDigits(2))),
		strconv.FormatFloat(rec.InsuranceEstimate, 'f', -1, 64),
	)
}

func (c *Console) command(ctx context.Context, cmd string) bool {
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":clear":
		c.session.Clear()
		fmt.Fprintln(c.out, "Cleared.")
	case ":help":
		fmt.Fprintln(c.out, helpText)
	case ":health":
		c.checkHealth(ctx)
	case ":history":
		c.showHistory(ctx)
	default:
		fmt.Fprintf(c.out, "Unknown command %s, try :help\n", cmd)
	}
	return false
}

func (c *Console) checkHealth(ctx context.Context) {
	if c.health == nil {
		fmt.Fprintln(c.out, "Health check not available")
		return
	}
	if err := c.health.Health(ctx); err != nil {
		fmt.Fprintf(c.out, "Service unavailable: %s\n", recommender.UserMessage(err))
		return
	}
	fmt.Fprintln(c.out, "Service healthy")
}

func (c *Console) showHistory(ctx context.Context) {
	if c.history == nil {
		fmt.Fprintln(c.out, "History is disabled")
		return
	}
	subs, err := c.history.Recent(ctx, c.userID, historyLimit)
	if err != nil {
		fmt.Fprintln(c.out, "History unavailable")
		return
	}
	if len(subs) == 0 {
		fmt.Fprintln(c.out, "No history yet")
		return
	}
	for _, s := range subs {
		fmt.Fprintf(c.out, "%s  %-16s %s\n",
			s.SubmittedAt.Local().Format(time.DateTime), s.Outcome, strings.TrimSpace(s.Question))
	}
}
