package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/diffwarden/internal/app"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
)

const asciiLogo = `
╔══════════════════════════════════════════════╗
║                                              ║
║    ╔╦╗╦╔═╗╔═╗  ╦ ╦╔═╗╦═╗╔╦╗╔═╗╔╗╔            ║
║     ║║║╠╣ ╠╣   ║║║╠═╣╠╦╝ ║║║╣ ║║║            ║
║    ═╩╝╩╚  ╚    ╚╩╝╩ ╩╩╚══╩╝╚═╝╝╚╝            ║
║                                              ║
║        STREAMING REVIEWS OF STAGED CODE      ║
║                                              ║
╚══════════════════════════════════════════════╝
`

// Every review in the terminal renders into the same panel, so a new review
// replaces the one still streaming.
const terminalSessionKey = "terminal"

const helpText = `COMMANDS:
  /review [path]   review the staged changes of the repository at path
  /pr [url]        review a GitHub pull request
  /cancel          stop the review in progress
  /history [n]     list the n most recent reviews
  /show [id]       show a stored review
  /clear           clear the screen
  /exit            quit`

type model struct {
	styles   styles
	reviewer *app.Reviewer
	cleanup  func()

	repoPath   string
	autoReview bool

	// UI Components
	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool
	sized     bool

	history []string

	// Active review
	session  *render.Session
	surface  *teaSurface
	cancel   context.CancelFunc
	target   string
	streamed string
}

func initialModel(theme ThemeName, repoPath string, autoReview bool) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Enter a command, /help lists them..."
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	return &model{
		styles:     styles,
		repoPath:   repoPath,
		autoReview: autoReview,
		textarea:   ta,
		spinner:    sp,
		isLoading:  true,
		history:    []string{styles.ascii.Render(asciiLogo), "", "⚙ INITIALIZING REVIEWER..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeReviewerCmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if m.session != nil {
				m.cancelReview()
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case reviewerInitializedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.addLines("", m.styles.error.Render("⚠ "+msg.err.Error()))
			return m, nil
		}
		m.reviewer = msg.reviewer
		m.cleanup = msg.cleanup
		m.addLines("", m.styles.success.Render("✓ READY"), "", "Type /help for commands.")
		if m.autoReview {
			return m, m.processCommand("/review " + m.repoPath)
		}
		return m, nil

	case reviewPreparedMsg:
		m.isLoading = false
		if msg.err != nil {
			if errors.Is(msg.err, review.ErrNoStagedChanges) {
				m.addLines(m.styles.inactive.Render("No staged changes found. Stage files with git add first."))
				return m, nil
			}
			m.addLines(m.styles.error.Render("⚠ " + msg.err.Error()))
			return m, nil
		}
		return m, m.beginReview(msg.review, msg.target)

	case opsMsg:
		if msg.session != m.session {
			return m, nil
		}
		for _, op := range msg.ops {
			switch op.Kind {
			case render.OpReplace:
				m.streamed = op.Text
			case render.OpAppend:
				m.streamed += op.Text
			}
		}
		m.refresh()
		return m, waitForOps(m.surface, m.session)

	case surfaceClosedMsg:
		return m, nil

	case reviewDoneMsg:
		if msg.session != m.session {
			return m, nil
		}
		m.finishReview(msg.text, msg.err)
		return m, nil

	case historyLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.addLines(m.styles.error.Render("Could not load history: " + msg.err.Error()))
			return m, nil
		}
		m.addLines(m.formatHistory(msg.reviews))
		return m, nil

	case reviewLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.addLines(m.styles.error.Render("⚠ " + msg.err.Error()))
			return m, nil
		}
		r := msg.review
		m.addLines(
			m.styles.command.Render(fmt.Sprintf("REVIEW #%d · %s · %s · %s", r.ID, r.Source, r.Model, r.Status)),
			m.renderMarkdown(r.ReviewContent),
		)
		return m, nil

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		m.sized = true
		m.attach()
		m.refresh()
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.reviewer == nil && m.isLoading {
		return fmt.Sprintf("\n  %s BOOTING...\n\n", m.spinner.View())
	}

	var statusParts []string
	if m.reviewer != nil {
		cfg := m.reviewer.Config
		statusParts = append(statusParts, fmt.Sprintf("🤖 %s (%s)", cfg.Model(), cfg.Provider.DisplayName()))
	}
	statusParts = append(statusParts, "PATH: "+m.repoPath)
	if m.session != nil {
		statusParts = append(statusParts, m.styles.success.Render("● REVIEWING "+m.target))
	} else {
		statusParts = append(statusParts, m.styles.inactive.Render("○ IDLE"))
	}
	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("PROCESSING...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					loadingIndicator,
				),
			),
			status,
		),
	)
}

func (m *model) processCommand(input string) tea.Cmd {
	m.addLines(m.styles.prompt.Render("► ") + input)

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/help", "/h":
		m.addLines(m.styles.inactive.Render(helpText))
		return nil
	case "/exit", "/quit":
		return tea.Quit
	case "/clear":
		m.history = nil
		m.refresh()
		return nil
	case "/cancel":
		if m.session == nil {
			m.addLines(m.styles.inactive.Render("No review in progress."))
			return nil
		}
		m.cancelReview()
		return nil
	}

	if m.reviewer == nil {
		m.addLines(m.styles.error.Render("The reviewer is not initialized yet."))
		return nil
	}

	switch command {
	case "/review", "/r":
		path := m.repoPath
		if len(args) > 0 {
			path = args[0]
		}
		m.isLoading = true
		m.addLines(m.styles.command.Render("→ Collecting staged changes in " + path + "..."))
		return tea.Batch(m.spinner.Tick, prepareStagedCmd(context.Background(), m.reviewer, path))

	case "/pr":
		if len(args) != 1 {
			m.addLines(m.styles.error.Render("USAGE: /pr [pull request url]"))
			return nil
		}
		m.isLoading = true
		m.addLines(m.styles.command.Render("→ Fetching " + args[0] + "..."))
		return tea.Batch(m.spinner.Tick, preparePullRequestCmd(context.Background(), m.reviewer, args[0]))

	case "/history":
		limit := 10
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				m.addLines(m.styles.error.Render("USAGE: /history [n]"))
				return nil
			}
			limit = n
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, loadHistoryCmd(m.reviewer, limit))

	case "/show":
		if len(args) != 1 {
			m.addLines(m.styles.error.Render("USAGE: /show [id]"))
			return nil
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			m.addLines(m.styles.error.Render("Invalid review ID: " + args[0]))
			return nil
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, loadReviewCmd(m.reviewer, id))

	default:
		m.addLines(m.styles.error.Render("Unknown command: " + command + ". Type /help for the list."))
		return nil
	}
}

// beginReview opens the panel session for rev. The surface attaches now if
// the viewport has a size, otherwise on the first window size message.
func (m *model) beginReview(rev *review.Review, target string) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m.session = m.reviewer.Registry.Begin(terminalSessionKey)
	m.surface = newTeaSurface()
	m.cancel = cancel
	m.target = target
	m.streamed = ""

	header := rev.ProviderName()
	if name := rev.Model(); name != "" {
		header += " · " + name
	}
	m.addLines("", m.styles.command.Render(fmt.Sprintf("→ Reviewing %s with %s", target, header)))
	m.attach()

	m.isLoading = true
	return tea.Batch(m.spinner.Tick, runReviewCmd(ctx, rev, m.session), waitForOps(m.surface, m.session))
}

func (m *model) attach() {
	if m.session == nil || !m.sized || m.session.IsReady() {
		return
	}
	if err := m.session.Attach(m.surface); err != nil {
		m.addLines(m.styles.error.Render("⚠ " + err.Error()))
	}
}

func (m *model) cancelReview() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *model) finishReview(text string, err error) {
	m.isLoading = false
	m.reviewer.Registry.End(m.session)
	m.cancel()

	streamed := m.streamed
	m.session, m.surface, m.cancel, m.streamed = nil, nil, nil, ""

	switch {
	case err == nil:
		m.addLines(m.renderMarkdown(text), m.styles.success.Render("✓ REVIEW COMPLETE"))
	case errors.Is(err, context.Canceled):
		if streamed != "" {
			m.addLines(m.wrap(streamed))
		}
		m.addLines(m.styles.inactive.Render("Review cancelled."))
	default:
		if streamed != "" {
			m.addLines(m.wrap(streamed))
		}
		m.addLines(m.styles.error.Render("⚠ " + err.Error()))
	}
}

// shutdown stops a running review and releases the reviewer's resources.
func (m *model) shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.reviewer != nil {
		m.reviewer.Registry.End(m.session)
	}
	if m.cleanup != nil {
		m.cleanup()
	}
}

func (m *model) addLines(lines ...string) {
	m.history = append(m.history, lines...)
	m.refresh()
}

func (m *model) refresh() {
	content := strings.Join(m.history, "\n")
	if m.session != nil && m.streamed != "" {
		content += "\n" + m.styles.streaming.Render(m.wrap(m.streamed))
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m *model) wrap(text string) string {
	if m.viewport.Width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(m.viewport.Width - 2).Render(text)
}

func (m *model) renderMarkdown(content string) string {
	width := m.viewport.Width
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle(m.styles.markdown), glamour.WithWordWrap(width))
	if err != nil {
		return m.wrap(content)
	}
	out, err := renderer.Render(content)
	if err != nil {
		return m.wrap(content)
	}
	return strings.TrimRight(out, "\n")
}

func (m *model) formatHistory(reviews []core.Review) string {
	if len(reviews) == 0 {
		return m.styles.inactive.Render("No reviews yet.")
	}
	var b strings.Builder
	b.WriteString(m.styles.success.Render("RECENT REVIEWS:") + "\n")
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, r := range reviews {
		target := r.RepoFullName
		if r.PRNumber > 0 {
			target = fmt.Sprintf("%s#%d", r.RepoFullName, r.PRNumber)
		}
		fmt.Fprintf(w, "  #%d\t%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Source, target, r.Status)
	}
	_ = w.Flush()
	b.WriteString(m.styles.inactive.Render("Use '/show [id]' to read one."))
	return b.String()
}
