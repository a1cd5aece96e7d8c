package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/ports"
)

// View represents the current view state
type View int

const (
	ItemsView View = iota
	VersionsView
	ConfirmRestoreView // Waiting for y/n before a restore
	DiffSelectView     // Selecting versions to compare
	DiffResultView     // Showing diff results (file list)
	FileDiffView       // Showing actual file content diff
)

// Model is the main TUI model
type Model struct {
	svc      ports.TUIService
	config   *config.Config
	view     View
	width    int
	height   int
	quitting bool

	// Items view
	items      []ports.TUIItemInfo
	itemCursor int
	selected   ports.TUIItemInfo

	// Versions view
	versions      []ports.TUIVersionInfo
	versionCursor int

	// Diff view
	diffSelections []int
	diffResult     *ports.TUIDiffResult
	diffCursor     int

	// File diff view
	fileDiffResult *ports.TUIFileDiff
	fileDiffScroll int
	diffSwapped    bool // v2 on the left

	// Background operation
	busy    bool
	spinner spinner.Model

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Run     key.Binding
	Verify  key.Binding
	Restore key.Binding
	Diff    key.Binding
	Live    key.Binding
	Select  key.Binding
	Swap    key.Binding
	Yes     key.Binding
	No      key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Run: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "backup now"),
	),
	Verify: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "verify"),
	),
	Restore: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "restore"),
	),
	Diff: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "diff"),
	),
	Live: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "diff vs live"),
	),
	Select: key.NewBinding(
		key.WithKeys(" ", "tab"),
		key.WithHelp("space", "select"),
	),
	Swap: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "swap"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("n", "no"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel loads the config and items through svc.
func NewModel(svc ports.TUIService) (*Model, error) {
	cfg, err := svc.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	m := NewModelWithConfig(cfg, svc)
	if err := m.loadItems(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModelWithConfig creates a model for an already loaded config.
func NewModelWithConfig(cfg *config.Config, svc ports.TUIService) *Model {
	return &Model{
		svc:     svc,
		config:  cfg,
		view:    ItemsView,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(cursorStyle)),
	}
}

func (m *Model) loadItems() error {
	items, err := m.svc.ListItems(m.config)
	if err != nil {
		return err
	}
	m.items = items
	if m.itemCursor >= len(m.items) {
		m.itemCursor = max(len(m.items)-1, 0)
	}
	return nil
}

func (m *Model) loadVersions() error {
	versions, err := m.svc.ListVersions(m.config, m.selected.ID)
	if err != nil {
		return err
	}
	m.versions = versions
	if m.versionCursor >= len(m.versions) {
		m.versionCursor = max(len(m.versions)-1, 0)
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

type statusMsg struct {
	msg string
	err bool
}

type diffMsg struct {
	result *ports.TUIDiffResult
	err    error
}

type fileDiffMsg struct {
	result *ports.TUIFileDiff
	err    error
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.busy = false
		m.statusMsg = msg.msg
		m.statusErr = msg.err
		// Reload data to reflect changes
		_ = m.loadItems()
		if m.view == VersionsView {
			_ = m.loadVersions()
		}
		return m, nil

	case diffMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Diff failed: %v", msg.err)
			m.statusErr = true
			m.view = VersionsView
			m.diffSelections = nil
		} else {
			m.diffResult = msg.result
			m.diffCursor = 0
			m.view = DiffResultView
			m.statusMsg = ""
		}
		return m, nil

	case fileDiffMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("File diff failed: %v", msg.err)
			m.statusErr = true
		} else {
			m.fileDiffResult = msg.result
			m.fileDiffScroll = 0
			m.view = FileDiffView
			m.statusMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		// One operation at a time.
		return m, nil
	}

	// Clear status on any key
	m.statusMsg = ""
	m.statusErr = false

	if m.view == ConfirmRestoreView {
		switch {
		case key.Matches(msg, keys.Yes):
			m.view = VersionsView
			return m, m.start(m.runRestore())
		case key.Matches(msg, keys.No), key.Matches(msg, keys.Back):
			m.view = VersionsView
			m.statusMsg = "Restore cancelled"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, keys.Enter):
		if m.view == ItemsView && len(m.items) > 0 {
			m.selected = m.items[m.itemCursor]
			m.versionCursor = 0
			if err := m.loadVersions(); err != nil {
				m.statusMsg = fmt.Sprintf("Error: %v", err)
				m.statusErr = true
			} else {
				m.view = VersionsView
			}
		} else if m.view == DiffResultView && m.diffResult != nil && len(m.diffResult.Changes) > 0 {
			change := m.diffResult.Changes[m.diffCursor]
			return m, m.start(m.computeFileDiff(change))
		}

	case key.Matches(msg, keys.Back):
		switch m.view {
		case VersionsView:
			m.view = ItemsView
			m.versions = nil
		case DiffSelectView:
			m.view = VersionsView
			m.diffSelections = nil
		case DiffResultView:
			m.view = VersionsView
			m.diffResult = nil
			m.diffCursor = 0
			m.diffSelections = nil
		case FileDiffView:
			m.view = DiffResultView
			m.fileDiffResult = nil
			m.fileDiffScroll = 0
		}

	case key.Matches(msg, keys.Run):
		if m.view == ItemsView || m.view == VersionsView {
			return m, m.start(m.runBackup())
		}

	case key.Matches(msg, keys.Verify):
		if m.view == ItemsView || m.view == VersionsView {
			return m, m.start(m.runVerify())
		}

	case key.Matches(msg, keys.Restore):
		if m.view == VersionsView && len(m.versions) > 0 {
			m.view = ConfirmRestoreView
		}

	case key.Matches(msg, keys.Diff):
		if m.view == VersionsView && len(m.versions) >= 2 {
			m.view = DiffSelectView
			m.diffSelections = nil
			m.statusMsg = "Select 2 versions to compare (space to select)"
		}

	case key.Matches(msg, keys.Live):
		if m.view == VersionsView && len(m.versions) > 0 {
			v := m.versions[m.versionCursor].Name
			return m, m.start(m.computeDiff(v, ports.LiveVersion))
		}

	case key.Matches(msg, keys.Select):
		if m.view == DiffSelectView {
			return m, m.start(m.toggleDiffSelection())
		}

	case key.Matches(msg, keys.Swap):
		if m.view == FileDiffView && m.fileDiffResult != nil {
			m.diffSwapped = !m.diffSwapped
		}
	}

	return m, nil
}

// start marks the model busy while cmd runs. A nil cmd is passed through.
func (m *Model) start(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	m.busy = true
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case ItemsView:
		m.itemCursor = clamp(m.itemCursor+delta, len(m.items)-1)
	case VersionsView, DiffSelectView:
		m.versionCursor = clamp(m.versionCursor+delta, len(m.versions)-1)
	case DiffResultView:
		if m.diffResult != nil {
			m.diffCursor = clamp(m.diffCursor+delta, len(m.diffResult.Changes)-1)
		}
	case FileDiffView:
		if m.fileDiffResult != nil {
			maxScroll := len(m.fileDiffResult.Lines) - m.fileDiffHeight()
			m.fileDiffScroll = clamp(m.fileDiffScroll+delta, maxScroll)
		}
	}
}

func clamp(v, hi int) int {
	if v > hi {
		v = hi
	}
	if v < 0 {
		v = 0
	}
	return v
}

// currentItem returns the item the cursor or the versions view refers to.
func (m *Model) currentItem() (ports.TUIItemInfo, bool) {
	switch {
	case m.view == ItemsView && len(m.items) > 0:
		return m.items[m.itemCursor], true
	case m.view != ItemsView && m.selected.ID != "":
		return m.selected, true
	}
	return ports.TUIItemInfo{}, false
}

func (m *Model) runBackup() tea.Cmd {
	item, ok := m.currentItem()
	cfg, svc := m.config, m.svc
	return func() tea.Msg {
		if !ok {
			return statusMsg{err: true, msg: "No item selected"}
		}
		result := svc.RunBackup(cfg, item.ID)
		if result.Error != nil {
			return statusMsg{err: true, msg: fmt.Sprintf("Backup failed: %v", result.Error)}
		}
		if result.Skipped {
			return statusMsg{msg: fmt.Sprintf("%s: %s", item.Name, result.Reason)}
		}
		return statusMsg{msg: fmt.Sprintf("✓ Backed up %s as %s (%s)",
			item.Name, result.Version, backup.FormatSize(result.Size))}
	}
}

func (m *Model) runVerify() tea.Cmd {
	item, ok := m.currentItem()
	cfg, svc := m.config, m.svc
	return func() tea.Msg {
		if !ok {
			return statusMsg{err: true, msg: "No item selected"}
		}
		if err := svc.VerifyBackup(cfg, item.ID); err != nil {
			return statusMsg{err: true, msg: fmt.Sprintf("✗ Verify failed: %v", err)}
		}
		return statusMsg{msg: fmt.Sprintf("✓ %s verified", item.Name)}
	}
}

func (m *Model) runRestore() tea.Cmd {
	if len(m.versions) == 0 {
		return nil
	}
	item := m.selected
	version := m.versions[m.versionCursor].Name
	cfg, svc := m.config, m.svc
	return func() tea.Msg {
		result := svc.Restore(cfg, item.ID, version)
		if result.Error != nil {
			return statusMsg{err: true, msg: fmt.Sprintf("Restore failed: %v", result.Error)}
		}
		msg := fmt.Sprintf("✓ Restored %s to %s (%d files)", item.Name, result.Version, result.Files)
		if result.SafetySnapshot != "" {
			msg += fmt.Sprintf(", previous saves kept as %s", result.SafetySnapshot)
		}
		if result.Skipped > 0 {
			return statusMsg{err: true, msg: fmt.Sprintf("%s; %d files could not be copied", msg, result.Skipped)}
		}
		return statusMsg{msg: msg}
	}
}

func (m *Model) toggleDiffSelection() tea.Cmd {
	idx := m.versionCursor
	found := -1
	for i, sel := range m.diffSelections {
		if sel == idx {
			found = i
			break
		}
	}

	if found >= 0 {
		m.diffSelections = append(m.diffSelections[:found], m.diffSelections[found+1:]...)
	} else if len(m.diffSelections) < 2 {
		m.diffSelections = append(m.diffSelections, idx)
	}

	if len(m.diffSelections) != 2 {
		return nil
	}
	// Older version on the left. Versions are listed newest first.
	a, b := m.diffSelections[0], m.diffSelections[1]
	if a < b {
		a, b = b, a
	}
	return m.computeDiff(m.versions[a].Name, m.versions[b].Name)
}

func (m *Model) computeDiff(v1, v2 string) tea.Cmd {
	cfg, svc, id := m.config, m.svc, m.selected.ID
	return func() tea.Msg {
		result, err := svc.Diff(cfg, id, v1, v2)
		return diffMsg{result: result, err: err}
	}
}

func (m *Model) computeFileDiff(change ports.TUIFileChange) tea.Cmd {
	cfg, svc, id := m.config, m.svc, m.selected.ID
	v1, v2 := m.diffResult.Version1, m.diffResult.Version2
	return func() tea.Msg {
		result, err := svc.FileDiff(cfg, id, v1, v2, change.Path)
		return fileDiffMsg{result: result, err: err}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case ItemsView:
		content = m.renderItemsView()
	case VersionsView, ConfirmRestoreView:
		content = m.renderVersionsView()
	case DiffSelectView:
		content = m.renderDiffSelectView()
	case DiffResultView:
		content = m.renderDiffResultView()
	case FileDiffView:
		content = m.renderFileDiffView()
	}

	return frameStyle.Render(content)
}

func (m *Model) visibleHeight() int {
	h := m.height - 10
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) renderStatus(b *strings.Builder) {
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + faintStyle.Render(" Working..."))
	case m.statusMsg != "" && m.statusErr:
		b.WriteString(failMark.Render(m.statusMsg))
	case m.statusMsg != "":
		b.WriteString(okMark.Render(m.statusMsg))
	}
	b.WriteString("\n")
}

// window returns the slice of a list of n rows that keeps cursor on screen.
func window(cursor, n, height int) (int, int) {
	lo := 0
	if cursor >= height {
		lo = cursor - height + 1
	}
	return lo, min(lo+height, n)
}

// pointer returns the row prefix and style for row i.
func pointer(i, cursor int) (string, lipgloss.Style) {
	if i == cursor {
		return "▸ ", cursorStyle
	}
	return "  ", rowStyle
}

func writeLine(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

func writeColumns(b *strings.Builder, header string, width int) {
	writeLine(b, faintStyle.Render(header))
	writeLine(b, faintStyle.Render(strings.Repeat("─", width)))
}

func fillTo(b *strings.Builder, rows, height int) {
	if rows < height {
		b.WriteString(strings.Repeat("\n", height-rows))
	}
}

func (m *Model) renderItemsView() string {
	var b strings.Builder
	writeLine(&b, bannerStyle.Render(" 💾 savekeep "))
	b.WriteByte('\n')

	height := m.visibleHeight()
	if len(m.items) == 0 {
		writeLine(&b, faintStyle.Render("  No save folders tracked. Add one with: savekeep add <name> <path>"))
	} else {
		writeColumns(&b, fmt.Sprintf("  %-28s %8s %10s %s", "GAME", "VERSIONS", "SIZE", "LAST BACKUP"), 70)
	}

	lo, hi := window(m.itemCursor, len(m.items), height)
	for i := lo; i < hi; i++ {
		it := m.items[i]
		prefix, style := pointer(i, m.itemCursor)
		versions, size, last := "-", "-", "-"
		if it.Versions > 0 {
			versions = fmt.Sprint(it.Versions)
		}
		if it.TotalSize > 0 {
			size = backup.FormatSize(it.TotalSize)
		}
		if !it.LastBackup.IsZero() {
			last = relativeTime(it.LastBackup)
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%-28s %8s %10s %s", prefix, truncate(it.Name, 28), versions, size, last)))
		if it.Missing {
			b.WriteString(warnMark.Render("  folder missing"))
		}
		b.WriteByte('\n')
	}
	fillTo(&b, len(m.items), height)

	if len(m.items) > 0 {
		b.WriteString(faintStyle.Render("  " + m.items[m.itemCursor].SavePath))
	}
	b.WriteByte('\n')
	m.renderStatus(&b)
	b.WriteString(keysStyle.Render("[↑/↓] navigate  [enter] versions  [b] backup now  [v] verify  [q] quit"))
	return b.String()
}

func (m *Model) renderVersionsView() string {
	var b strings.Builder
	writeLine(&b, bannerStyle.Render(fmt.Sprintf(" 💾 %s ", m.selected.Name)))
	writeLine(&b, faintStyle.Render("  "+m.selected.Dir))
	b.WriteByte('\n')

	height := m.visibleHeight()
	if len(m.versions) == 0 {
		writeLine(&b, faintStyle.Render("  No backups found"))
		b.WriteByte('\n')
	} else {
		writeColumns(&b, fmt.Sprintf("  %-20s %10s %8s  %s", "VERSION", "SIZE", "FILES", "CREATED"), 60)
		lo, hi := window(m.versionCursor, len(m.versions), height)
		for i := lo; i < hi; i++ {
			v := m.versions[i]
			prefix, style := pointer(i, m.versionCursor)
			writeLine(&b, style.Render(fmt.Sprintf("%s%-20s %10s %8d  %s",
				prefix, v.Name, backup.FormatSize(v.Size), v.FileCount, relativeTime(v.CreatedAt))))
		}
	}
	fillTo(&b, len(m.versions), height)

	if m.view == ConfirmRestoreView && len(m.versions) > 0 {
		b.WriteByte('\n')
		writeLine(&b, warnMark.Render(fmt.Sprintf("Restore %s to %s? Current saves are backed up first. [y/n]",
			m.selected.Name, m.versions[m.versionCursor].Name)))
		return b.String()
	}

	m.renderStatus(&b)
	b.WriteString(keysStyle.Render("[↑/↓] navigate  [R] restore  [d] diff  [l] diff vs live  [b] backup now  [v] verify  [esc] back  [q] quit"))
	return b.String()
}

func (m *Model) renderDiffSelectView() string {
	var b strings.Builder
	writeLine(&b, bannerStyle.Render(fmt.Sprintf(" 🔍 %s - Select versions to compare ", m.selected.Name)))
	b.WriteByte('\n')
	writeColumns(&b, fmt.Sprintf("     %-20s %10s %8s", "VERSION", "SIZE", "FILES"), 60)

	marked := make(map[int]bool, len(m.diffSelections))
	for _, idx := range m.diffSelections {
		marked[idx] = true
	}

	height := m.visibleHeight()
	lo, hi := window(m.versionCursor, len(m.versions), height)
	for i := lo; i < hi; i++ {
		v := m.versions[i]
		prefix, style := pointer(i, m.versionCursor)
		box := "[ ]"
		if marked[i] {
			box = "[✓]"
		}
		writeLine(&b, style.Render(fmt.Sprintf("%s%s %-20s %10s %8d",
			prefix, box, v.Name, backup.FormatSize(v.Size), v.FileCount)))
	}
	fillTo(&b, len(m.versions), height)

	b.WriteByte('\n')
	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + faintStyle.Render(" Comparing..."))
	case len(m.diffSelections) == 0:
		b.WriteString(faintStyle.Render("Select first version..."))
	case len(m.diffSelections) == 1:
		b.WriteString(faintStyle.Render("Select second version..."))
	}
	b.WriteByte('\n')
	b.WriteString(keysStyle.Render("[↑/↓] navigate  [space] select  [esc] cancel"))
	return b.String()
}

func (m *Model) renderDiffResultView() string {
	res := m.diffResult
	if res == nil {
		return "Loading..."
	}

	var b strings.Builder
	writeLine(&b, bannerStyle.Render(fmt.Sprintf(" 📊 Diff: %s vs %s ", res.Version1, res.Version2)))
	b.WriteByte('\n')
	writeColumns(&b, fmt.Sprintf("  Modified: %d   Added: %d   Deleted: %d", res.Modified, res.Added, res.Deleted), 70)

	height := m.visibleHeight()
	if len(res.Changes) == 0 {
		writeLine(&b, faintStyle.Render("  No differences found"))
	}
	lo, hi := window(m.diffCursor, len(res.Changes), height)
	for i := lo; i < hi; i++ {
		c := res.Changes[i]
		prefix, style := pointer(i, m.diffCursor)
		if i != m.diffCursor {
			switch c.Status {
			case 'A':
				style = insertStyle
			case 'D':
				style = removeStyle
			}
		}
		writeLine(&b, style.Render(fmt.Sprintf("%s%c %s", prefix, c.Status, c.Path)))
	}
	fillTo(&b, len(res.Changes), height)

	m.renderStatus(&b)
	b.WriteString(keysStyle.Render("[↑/↓] navigate  [enter] view diff  [esc] back  [q] quit"))
	return b.String()
}

// fileDiffHeight is the number of diff lines shown at once.
func (m *Model) fileDiffHeight() int {
	return max(m.height-12, 5)
}

func (m *Model) renderFileDiffView() string {
	fd := m.fileDiffResult
	if fd == nil {
		return "Loading..."
	}

	left, right := fd.Version1, fd.Version2
	if m.diffSwapped {
		left, right = right, left
	}

	var b strings.Builder
	writeLine(&b, bannerStyle.Render(fmt.Sprintf(" 📄 %s ", fd.Path)))
	writeColumns(&b, fmt.Sprintf("  %-35s │ %-35s", left, right), 75)

	switch {
	case fd.IsBinary:
		writeLine(&b, faintStyle.Render("  Binary file - content diff not available"))
	case len(fd.Lines) == 0:
		writeLine(&b, faintStyle.Render("  No differences"))
	default:
		height := m.fileDiffHeight()
		start := min(m.fileDiffScroll, len(fd.Lines))
		end := min(start+height, len(fd.Lines))
		for _, l := range fd.Lines[start:end] {
			writeLine(&b, m.renderDiffLine(l))
		}
		if len(fd.Lines) > height {
			writeLine(&b, faintStyle.Render(fmt.Sprintf("  Lines %d-%d of %d", start+1, end, len(fd.Lines))))
		}
	}

	m.renderStatus(&b)
	b.WriteString(keysStyle.Render("[↑/↓] scroll  [s] swap sides  [esc] back  [q] quit"))
	return b.String()
}

// renderDiffLine renders one side-by-side line, mirrored when sides are swapped.
func (m *Model) renderDiffLine(l ports.TUIDiffLine) string {
	num := func(n int) string {
		if n <= 0 {
			return "   "
		}
		return fmt.Sprintf("%3d", n)
	}
	left, right, kind := num(l.LineNum1), num(l.LineNum2), l.Type
	if m.diffSwapped {
		left, right = right, left
		switch kind {
		case '+':
			kind = '-'
		case '-':
			kind = '+'
		}
	}

	text := truncate(l.Content, 60)
	switch kind {
	case '+':
		return insertStyle.Render(fmt.Sprintf("%s  + │ %s  + %s", left, right, text))
	case '-':
		return removeStyle.Render(fmt.Sprintf("%s  - │ %s  - %s", left, right, text))
	}
	return faintStyle.Render(fmt.Sprintf("%s    │ %s    %s", left, right, text))
}

// Run starts the TUI
func Run(svc ports.TUIService) error {
	m, err := NewModel(svc)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func relativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
