package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/logger"
	"github.com/jwebster45206/choice-engine/pkg/content"
	"github.com/jwebster45206/choice-engine/pkg/quest"
	"github.com/jwebster45206/choice-engine/pkg/state"
	"github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const AppTitle = "CHOICE ENGINE"

type keyMap struct {
	Map     key.Binding
	Save    key.Binding
	Copy    key.Binding
	NewGame key.Binding
	Back    key.Binding
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
}

var keys = keyMap{
	Map:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "map")),
	Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	Copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy save ID")),
	NewGame: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new game")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	Up:      key.NewBinding(key.WithKeys("up", "k")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	Enter:   key.NewBinding(key.WithKeys("enter")),
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	store  storage.Storage
	logger *slog.Logger
	game   *game

	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	status        string

	// Bundle selection state
	showBundleModal bool
	bundles         []string
	bundleMap       map[string]string
	selectedBundle  int
	loadingBundles  bool

	showMap       bool
	showQuitModal bool
}

type bundlesLoadedMsg struct {
	titles    []string
	bundleMap map[string]string
	err       error
}

type bundleLoadedMsg struct {
	bundle *content.Bundle
	err    error
}

type saveLoadedMsg struct {
	save *state.GameSave
	err  error
}

type savedMsg struct {
	id  uuid.UUID
	err error
}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	questStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

var titleCaser = cases.Title(language.English)

func NewConsoleUI(cfg *ConsoleConfig, store storage.Storage, log *slog.Logger) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:          cfg,
		store:           store,
		logger:          log,
		storyViewport:   storyVp,
		metaViewport:    viewport.New(20, 20),
		showBundleModal: true,
		loadingBundles:  cfg.BundleFile == "",
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.config.BundleFile != "" {
		return m.loadBundleFile(m.config.BundleFile)
	}
	return m.loadBundles()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showBundleModal {
		return m.updateBundleModal(msg)
	}

	var vpCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()

	case saveLoadedMsg:
		m.restoreSave(msg)
		m.refresh()

	case savedMsg:
		log := logger.WithSession(m.logger, msg.id.String())
		if msg.err != nil {
			logger.WithError(log, msg.err).Error("Failed to save game")
			m.status = errorStyle.Render("Save failed: " + msg.err.Error())
		} else {
			log.Info("Game saved")
			m.status = questStyle.Render("Saved " + msg.id.String())
		}
		m.refresh()

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.refresh()
		return m, cmd
	}

	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	return m, vpCmd
}

func (m *ConsoleUI) handleKey(msg tea.KeyMsg) tea.Cmd {
	g := m.game

	if g.resetPending {
		switch msg.String() {
		case "y", "Y":
			g.restart()
			m.status = "New game started."
		case "n", "N", "esc":
			g.resetPending = false
			m.status = ""
		}
		return nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.showQuitModal = true
		return nil
	case key.Matches(msg, keys.Back):
		m.showMap = false
		return nil
	case key.Matches(msg, keys.Map):
		m.showMap = !m.showMap
		return nil
	case key.Matches(msg, keys.Save):
		m.status = loadingStyle.Render("Saving...")
		return m.saveGame()
	case key.Matches(msg, keys.Copy):
		id := g.sess.ID().String()
		if err := clipboard.WriteAll(id); err != nil {
			m.status = errorStyle.Render("Clipboard unavailable: " + err.Error())
		} else {
			m.status = "Copied save ID " + id
		}
		return nil
	case key.Matches(msg, keys.NewGame):
		g.restart()
		m.status = "New game started."
		return nil
	}

	n, ok := choiceNumber(msg)
	if !ok {
		return nil
	}
	var err error
	if m.showMap {
		err = g.travel(n)
		if err == nil {
			m.showMap = false
		}
	} else {
		err = g.choose(n)
	}
	if err != nil {
		m.status = errorStyle.Render(err.Error())
	} else {
		m.status = ""
	}
	return nil
}

// choiceNumber maps the keys 1-9 to zero-based indexes
func choiceNumber(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '1'), true
}

func (m *ConsoleUI) resize(width, height int) {
	m.width = width
	m.height = height

	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 4
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 3
	m.ready = true
}

func (m *ConsoleUI) refresh() {
	if m.game == nil {
		return
	}
	m.storyViewport.SetContent(m.renderStory(m.storyViewport.Width - 4))
	m.storyViewport.GotoBottom()
	m.metaViewport.SetContent(m.renderMeta())
}

func (m *ConsoleUI) startGame(b *content.Bundle) tea.Cmd {
	g, err := newGame(b, m.config.GameVersion, m.logger)
	if err != nil {
		m.err = err
		return nil
	}
	m.game = g
	m.showBundleModal = false

	if m.config.LoadID != uuid.Nil {
		return m.loadSave(m.config.LoadID)
	}
	g.sess.NewGame()
	m.refresh()
	return nil
}

func (m *ConsoleUI) restoreSave(msg saveLoadedMsg) {
	g := m.game
	g.transcript = nil
	switch {
	case msg.err != nil:
		logger.WithError(m.logger, msg.err).Error("Failed to load game", "uuid", m.config.LoadID)
		g.sess.NewGame()
		m.status = errorStyle.Render("Load failed, starting a new game: " + msg.err.Error())
	case msg.save == nil:
		g.sess.NewGame()
		m.status = errorStyle.Render("Save not found, starting a new game")
	default:
		if err := g.sess.Restore(msg.save); err != nil {
			m.status = errorStyle.Render(err.Error())
			return
		}
		g.transcript = append([]entry{{kind: entrySystem, text: "Game loaded."}}, g.transcript...)
	}
}

func (m ConsoleUI) renderStory(width int) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(AppTitle) + "\n")
	b.WriteString(promptStyle.Render(m.game.sess.Bundle().Title) + "\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.game.transcript {
		switch e.kind {
		case entryDialogue:
			if e.speaker != "" {
				b.WriteString(speakerStyle.Render(e.speaker+":") + " ")
			}
			b.WriteString(wordwrap.String(e.text, width) + "\n\n")
		case entryChoice:
			b.WriteString(choiceStyle.Render("> "+wordwrap.String(e.text, width-2)) + "\n\n")
		case entryQuest, entryTravel:
			b.WriteString(questStyle.Render(wordwrap.String(e.text, width)) + "\n\n")
		default:
			b.WriteString(promptStyle.Render(e.text) + "\n\n")
		}
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n")
	switch {
	case m.game.resetPending:
		b.WriteString(loadingStyle.Render("Start over from the beginning? (y/n)") + "\n")
	case m.showMap:
		b.WriteString(titleStyle.Render("Where to?") + "\n")
		for i, loc := range m.game.sess.Map().Available() {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, loc.Name))
		}
		b.WriteString(promptStyle.Render("esc to return") + "\n")
	case m.game.last.Ended:
		b.WriteString(promptStyle.Render("The conversation is over. Press m to travel or n for a new game.") + "\n")
	default:
		for i, c := range m.game.sess.Dialogue().AvailableChoices() {
			b.WriteString(choiceStyle.Render(fmt.Sprintf("  %d. ", i+1)) + wordwrap.String(c.Text, width-6) + "\n")
		}
	}
	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	return b.String()
}

func (m ConsoleUI) renderMeta() string {
	sess := m.game.sess
	var b strings.Builder

	b.WriteString(titleStyle.Render("GAME STATE") + "\n\n")
	b.WriteString("Save ID:\n")
	b.WriteString(sess.ID().String()[:8] + "...\n\n")

	if loc, ok := sess.Map().Current(); ok {
		b.WriteString("Location:\n" + loc.Name + "\n\n")
	}

	b.WriteString("Quests:\n")
	active := sess.Quests().ActiveQuests()
	completed := sess.Quests().CompletedQuestIDs()
	if len(active) == 0 && len(completed) == 0 {
		b.WriteString("None\n")
	}
	for _, def := range active {
		b.WriteString(fmt.Sprintf("• %s (%s)\n", def.Name, titleCaser.String(string(quest.StatusActive))))
		if stage, ok := sess.Quests().CurrentStage(def.ID); ok {
			b.WriteString("  " + wordwrap.String(stage.Objective, m.metaViewport.Width-2) + "\n")
		}
	}
	for _, id := range completed {
		b.WriteString(promptStyle.Render(fmt.Sprintf("• %s (%s)", id, titleCaser.String(string(quest.StatusCompleted)))) + "\n")
	}

	b.WriteString("\nFlags:\n")
	flags := sess.Flags().Snapshot()
	if len(flags) == 0 {
		b.WriteString("None set\n")
	}
	for _, f := range flags {
		b.WriteString("• " + f + "\n")
	}

	b.WriteString("\nKeys:\n")
	for _, k := range []key.Binding{keys.Map, keys.Save, keys.Copy, keys.NewGame, keys.Quit} {
		h := k.Help()
		b.WriteString(fmt.Sprintf("• %s: %s\n", h.Key, h.Desc))
	}
	b.WriteString("• 1-9: choose\n")
	return b.String()
}

func (m ConsoleUI) saveGame() tea.Cmd {
	// Snapshot now; the session is not safe to touch from the command goroutine
	gs := m.game.sess.Snapshot()
	store := m.store
	timeout := m.config.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return savedMsg{id: gs.ID, err: store.SaveGame(ctx, gs.ID, gs)}
	}
}

func (m ConsoleUI) loadSave(id uuid.UUID) tea.Cmd {
	store := m.store
	timeout := m.config.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		gs, err := store.LoadGame(ctx, id)
		if gs != nil && gs.ID == uuid.Nil {
			gs.ID = id
		}
		return saveLoadedMsg{save: gs, err: err}
	}
}

func (m ConsoleUI) loadBundles() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		bundleMap, err := store.ListBundles(context.Background())
		return bundlesLoadedMsg{titles: sortedTitles(bundleMap), bundleMap: bundleMap, err: err}
	}
}

func (m ConsoleUI) loadBundle(filename string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		b, err := store.GetBundle(context.Background(), filename)
		return bundleLoadedMsg{bundle: b, err: err}
	}
}

func (m ConsoleUI) loadBundleFile(path string) tea.Cmd {
	return func() tea.Msg {
		b, err := loadBundleFile(path)
		return bundleLoadedMsg{bundle: b, err: err}
	}
}

func (m ConsoleUI) updateBundleModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case bundlesLoadedMsg:
		m.loadingBundles = false
		if msg.err != nil {
			m.err = msg.err
		} else if len(msg.titles) == 0 {
			m.err = fmt.Errorf("no content bundles found")
		} else {
			m.bundles = msg.titles
			m.bundleMap = msg.bundleMap
		}

	case bundleLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		cmd := m.startGame(msg.bundle)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) || key.Matches(msg, keys.Back) {
			if m.loadingBundles || m.err != nil {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingBundles || m.err != nil {
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Up):
			if m.selectedBundle > 0 {
				m.selectedBundle--
			}
		case key.Matches(msg, keys.Down):
			if m.selectedBundle < len(m.bundles)-1 {
				m.selectedBundle++
			}
		case key.Matches(msg, keys.Enter):
			if len(m.bundles) > 0 {
				title := m.bundles[m.selectedBundle]
				return m, m.loadBundle(m.bundleMap[title])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "enter", "y", "Y":
			return m, tea.Quit
		case "n", "N", "esc":
			m.showQuitModal = false
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Quit Game?"))
	b.WriteString("\n\n")
	b.WriteString("Unsaved progress will be lost.")
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderBundleModal() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(modalTitleStyle.Render("Error"))
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load content: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString("Press Ctrl+C to exit")
	case m.loadingBundles:
		b.WriteString(modalTitleStyle.Render("Loading Content..."))
	case len(m.bundles) == 0:
		b.WriteString(loadingStyle.Render("Setting up your adventure..."))
	default:
		b.WriteString(modalTitleStyle.Render("Select a Story"))
		b.WriteString("\n\n")
		for i, title := range m.bundles {
			if i == m.selectedBundle {
				b.WriteString(modalSelectedItemStyle.Render("▶ " + title))
			} else {
				b.WriteString(modalItemStyle.Render("  " + title))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(b.String())
	if m.width == 0 || m.height == 0 {
		return modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showBundleModal {
		return m.renderBundleModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 2).Render(m.storyViewport.View())
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}
