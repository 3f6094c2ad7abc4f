package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/justyntemme/filepane/internal/app"
	"github.com/justyntemme/filepane/internal/config"
	"github.com/justyntemme/filepane/internal/debug"
	"github.com/justyntemme/filepane/internal/fs"
	"github.com/justyntemme/filepane/internal/importer"
	"github.com/justyntemme/filepane/internal/logging"
	"github.com/justyntemme/filepane/internal/notify"
)

// lineReader yields one command line at a time. *term.Terminal implements it.
type lineReader interface {
	ReadLine() (string, error)
}

type prompter interface {
	SetPrompt(prompt string)
}

// scanLines adapts a bufio.Scanner for non-interactive input.
type scanLines struct {
	sc *bufio.Scanner
}

func (s scanLines) ReadLine() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, s *shell, args []string) error
}

var errQuit = errors.New("quit")

// shell drives an engine from typed commands.
type shell struct {
	engine *app.Engine
	config *config.Manager // nil when preferences are not persisted
	toast  *notify.Toast
	out    io.Writer
	width  int // Terminal columns, 0 if unknown
	cmds   map[string]command
}

func newShell(engine *app.Engine, cfg *config.Manager, toast *notify.Toast, out io.Writer) *shell {
	s := &shell{
		engine: engine,
		config: cfg,
		toast:  toast,
		out:    out,
	}
	s.cmds = map[string]command{
		"ls":      {"ls", "list the current folder", cmdList},
		"cd":      {"cd [path]", "change folder (~ is the root)", cmdChange},
		"open":    {"open <#>", "open the folder at a listing index", cmdOpen},
		"up":      {"up", "go to the parent folder", cmdUp},
		"back":    {"back", "go back in history", cmdBack},
		"forward": {"forward", "go forward in history", cmdForward},
		"pwd":     {"pwd", "print the current path", cmdPwd},
		"refresh": {"refresh", "re-read the current folder", cmdRefresh},
		"sort":    {"sort <name|modified|size|type>", "sort by field, repeat to reverse", cmdSort},
		"view":    {"view", "toggle list and grid view", cmdView},
		"select":  {"select <#|name>...", "toggle selection of entries", cmdSelect},
		"all":     {"all", "select every entry", cmdSelectAll},
		"clear":   {"clear", "clear the selection", cmdClear},
		"upload":  {"upload <file>...", "add host files by name and size", cmdUpload},
		"rm":      {"rm", "delete the selected entries", cmdDelete},
		"mkdir":   {"mkdir <name>", "create a folder", cmdMkdir},
		"import":  {"import [-hidden] <dir>", "copy a host directory tree in", cmdImport},
		"find":    {"find <query>", "search below the current folder", cmdFind},
		"status":  {"status", "show engine state and last error", cmdStatus},
		"debug":   {"debug [on|off <category>...|level <level>]", "show or change debug logging", cmdDebug},
		"help":    {"help", "show this help", cmdHelp},
		"quit":    {"quit", "leave the shell", cmdQuit},
	}
	s.cmds["exit"] = s.cmds["quit"]
	return s
}

// run reads commands until EOF or quit.
func (s *shell) run(ctx context.Context, lines lineReader) error {
	s.setPrompt(lines)
	for {
		line, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.exec(ctx, line); errors.Is(err, errQuit) {
			return nil
		}
		s.flushToast()
		s.setPrompt(lines)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *shell) setPrompt(lines lineReader) {
	if p, ok := lines.(prompter); ok {
		p.SetPrompt(s.engine.Snapshot().CurrentPath + " > ")
	}
}

// exec runs one command line. Errors other than errQuit are printed.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := s.cmds[fields[0]]
	if !ok {
		s.printf("unknown command %q, try help\n", fields[0])
		return nil
	}

	err := cmd.run(ctx, s, fields[1:])
	switch {
	case err == nil, errors.Is(err, errQuit):
		return err
	case errors.Is(err, fs.ErrValidation), errors.Is(err, fs.ErrDuplicateName):
		// Already reported through the toast
	default:
		s.printf("%s: %v\n", fields[0], err)
	}
	return nil
}

func (s *shell) flushToast() {
	if msg, ok := s.toast.Current(); ok {
		s.printf("[%s] %s\n", msg.Level, msg.Text)
		s.toast.Dismiss()
	}
}

func (s *shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// entryAt resolves a 1-based listing index or an entry name.
func (s *shell) entryAt(ref string) (fs.Entry, error) {
	entries := s.engine.Snapshot().Entries
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(entries) {
			return fs.Entry{}, fmt.Errorf("no entry #%d", n)
		}
		return entries[n-1], nil
	}
	for _, e := range entries {
		if e.Name == ref {
			return e, nil
		}
	}
	return fs.Entry{}, fmt.Errorf("no entry named %q", ref)
}

// --- Commands ---

func cmdList(_ context.Context, s *shell, _ []string) error {
	snap := s.engine.Snapshot()
	if len(snap.Entries) == 0 {
		s.printf("(empty)\n")
		return nil
	}
	if snap.ViewMode == app.ViewGrid {
		s.printGrid(snap)
		return nil
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \t#\tNAME\tSIZE\tMODIFIED\tKIND")
	for i, e := range snap.Entries {
		mark := " "
		if snap.IsSelected(e.ID) {
			mark = "*"
		}
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			mark, i+1, name, fs.FormatSize(e), fs.FormatModified(e.Modified), fs.IconFor(e))
	}
	return w.Flush()
}

func (s *shell) printGrid(snap app.Snapshot) {
	cells := make([]string, len(snap.Entries))
	cellWidth := 0
	for i, e := range snap.Entries {
		cell := fmt.Sprintf("%d:%s", i+1, e.Name)
		if e.IsDir() {
			cell += "/"
		}
		if snap.IsSelected(e.ID) {
			cell = "*" + cell
		}
		cells[i] = cell
		if len(cell) > cellWidth {
			cellWidth = len(cell)
		}
	}
	cellWidth += 2

	width := s.width
	if width <= 0 {
		width = 80
	}
	perRow := width / cellWidth
	if perRow < 1 {
		perRow = 1
	}
	for i, cell := range cells {
		s.printf("%-*s", cellWidth, cell)
		if (i+1)%perRow == 0 || i == len(cells)-1 {
			s.printf("\n")
		}
	}
}

func cmdChange(ctx context.Context, s *shell, args []string) error {
	target := "~"
	if len(args) > 0 {
		target = strings.Join(args, " ")
	}
	return s.engine.Navigate(ctx, s.engine.Resolve(target))
}

func cmdOpen(ctx context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: open <#>")
	}
	e, err := s.entryAt(args[0])
	if err != nil {
		return err
	}
	return s.engine.Open(ctx, e.ID)
}

func cmdUp(ctx context.Context, s *shell, _ []string) error      { return s.engine.Up(ctx) }
func cmdBack(ctx context.Context, s *shell, _ []string) error    { return s.engine.Back(ctx) }
func cmdForward(ctx context.Context, s *shell, _ []string) error { return s.engine.Forward(ctx) }
func cmdRefresh(ctx context.Context, s *shell, _ []string) error { return s.engine.Refresh(ctx) }

func cmdPwd(_ context.Context, s *shell, _ []string) error {
	snap := s.engine.Snapshot()
	names := make([]string, len(snap.Breadcrumbs))
	for i, c := range snap.Breadcrumbs {
		names[i] = c.Name
	}
	s.printf("%s  (%s)\n", snap.CurrentPath, strings.Join(names, " > "))
	return nil
}

func cmdSort(_ context.Context, s *shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sort <name|modified|size|type>")
	}
	field, err := fs.ParseSortField(args[0])
	if err != nil {
		return err
	}
	s.engine.SetSort(field)

	snap := s.engine.Snapshot()
	dir := "ascending"
	if !snap.SortAscending {
		dir = "descending"
	}
	s.printf("sorted by %s, %s\n", snap.SortField, dir)
	if s.config != nil {
		return s.config.SetSort(snap.SortField.String(), snap.SortAscending)
	}
	return nil
}

func cmdView(_ context.Context, s *shell, _ []string) error {
	s.engine.ToggleViewMode()
	mode := s.engine.Snapshot().ViewMode
	s.printf("%s view\n", mode)
	if s.config != nil {
		return s.config.SetViewMode(mode.String())
	}
	return nil
}

func cmdSelect(_ context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: select <#|name>...")
	}
	for _, ref := range args {
		e, err := s.entryAt(ref)
		if err != nil {
			return err
		}
		s.engine.ToggleSelection(e.ID)
	}
	s.printf("%d selected\n", len(s.engine.Snapshot().Selection))
	return nil
}

func cmdSelectAll(_ context.Context, s *shell, _ []string) error {
	s.engine.SelectAll()
	s.printf("%d selected\n", len(s.engine.Snapshot().Selection))
	return nil
}

func cmdClear(_ context.Context, s *shell, _ []string) error {
	s.engine.ClearSelection()
	return nil
}

func cmdUpload(ctx context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: upload <file>...")
	}
	files := make([]fs.Upload, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory, use import", arg)
		}
		files = append(files, fs.Upload{Name: filepath.Base(arg), Size: info.Size()})
	}
	return s.engine.Upload(ctx, files)
}

func cmdDelete(ctx context.Context, s *shell, _ []string) error {
	if len(s.engine.Snapshot().Selection) == 0 {
		return errors.New("nothing selected")
	}
	return s.engine.DeleteSelected(ctx)
}

func cmdMkdir(ctx context.Context, s *shell, args []string) error {
	return s.engine.CreateFolder(ctx, strings.Join(args, " "))
}

func cmdImport(ctx context.Context, s *shell, args []string) error {
	var opts []importer.Option
	if len(args) > 0 && args[0] == "-hidden" {
		opts = append(opts, importer.WithHidden())
		args = args[1:]
	}
	if len(args) != 1 {
		return errors.New("usage: import [-hidden] <dir>")
	}
	stats, err := s.engine.Import(ctx, args[0], opts...)
	if err == nil && stats.Skipped > 0 {
		s.printf("%d existing entries kept\n", stats.Skipped)
	}
	return err
}

func cmdFind(ctx context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: find <query>")
	}
	results, err := s.engine.Search(ctx, strings.Join(args, " "), 1)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		s.printf("no matches\n")
		return nil
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, e := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, fs.FormatSize(e), fs.FormatModified(e.Modified))
	}
	return w.Flush()
}

func cmdStatus(_ context.Context, s *shell, _ []string) error {
	snap := s.engine.Snapshot()
	s.printf("state: %s  entries: %d  selected: %d  sort: %s  view: %s\n",
		snap.State, len(snap.Entries), len(snap.Selection), snap.SortField, snap.ViewMode)
	if snap.LastError != nil {
		s.printf("last error: %s (%v)\n", snap.ErrorMessage, snap.LastError)
	}
	return nil
}

func cmdDebug(_ context.Context, s *shell, args []string) error {
	if len(args) == 0 {
		if !debug.Enabled {
			s.printf("debug categories not compiled in, build with -tags debug\n")
			return nil
		}
		enabled := debug.ListEnabled()
		names := make([]string, len(enabled))
		for i, cat := range enabled {
			names[i] = string(cat)
		}
		s.printf("enabled: %s\n", strings.Join(names, " "))
		return nil
	}

	switch args[0] {
	case "level":
		if len(args) != 2 {
			return errors.New("usage: debug level <debug|info|warn|error>")
		}
		if err := logging.SetLevel(args[1]); err != nil {
			return err
		}
		s.printf("log level %s\n", strings.ToLower(args[1]))
	case "on", "off":
		if len(args) < 2 {
			return fmt.Errorf("usage: debug %s <category>...", args[0])
		}
		for _, name := range args[1:] {
			cat := debug.Category(strings.ToUpper(name))
			if args[0] == "on" {
				debug.Enable(cat)
			} else {
				debug.Disable(cat)
			}
			state := "off"
			if debug.IsEnabled(cat) {
				state = "on"
			}
			s.printf("%s: %s\n", cat, state)
		}
	default:
		return fmt.Errorf("unknown debug action %q", args[0])
	}
	return nil
}

func cmdHelp(_ context.Context, s *shell, _ []string) error {
	names := []string{
		"ls", "cd", "open", "up", "back", "forward", "pwd", "refresh",
		"sort", "view", "select", "all", "clear",
		"upload", "rm", "mkdir", "import", "find", "status", "debug", "help", "quit",
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, name := range names {
		c := s.cmds[name]
		fmt.Fprintf(w, "%s\t%s\n", c.usage, c.help)
	}
	return w.Flush()
}

func cmdQuit(context.Context, *shell, []string) error { return errQuit }
