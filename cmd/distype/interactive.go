package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/distype/internal/compose"
	"github.com/hammamikhairi/distype/internal/conversation"
	"github.com/hammamikhairi/distype/internal/display"
	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/feedback"
	"github.com/hammamikhairi/distype/internal/logger"
	"github.com/hammamikhairi/distype/internal/phrasebook"
	"github.com/hammamikhairi/distype/internal/speech"
)

// onlineRefresh is how often the status bar's connection flag is
// refreshed. Probing happens off the UI goroutine.
const onlineRefresh = 3 * time.Second

// runInteractive wires the prompt and blocks until the user quits.
func (a *app) runInteractive(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cli := &cliApp{
		parser: conversation.NewCommandParser(a.log.Named("parser")),
		slots:  compose.NewSlots(a.cfg.Speech.Slots),
		email:  a.cfg.Feedback.Email,
		log:    a.log,
	}
	cli.preferOnline.Store(a.cfg.Speech.PreferOnline)
	cli.wordEcho.Store(a.cfg.Speech.WordEcho)

	st, err := a.newSpeech(cli.onState)
	if err != nil {
		return err
	}
	cli.disp = st.disp
	cli.probe = st.probe
	cli.voiceFor = func(voice string) domain.Vocalizer {
		return st.remoteFor(a.newProvider(voice), a.log.Named("remote"))
	}

	book, err := a.openBook(st.disp)
	if err != nil {
		return err
	}
	cli.book = book
	cli.feedback = feedback.NewClient(a.cfg.Feedback.URL, a.log.Named("feedback"))

	if a.cfg.Dictation.Enabled {
		dc := speech.NewDictation(a.cfg.Dictation.WhisperBin, a.cfg.Dictation.Model, a.log.Named("dictation"),
			speech.WithChunkDuration(a.chunkDuration()),
			speech.WithSilencer(st.disp),
		)
		if _, err := os.Stat(a.cfg.Dictation.Model); err != nil || !dc.Available() {
			a.log.Warn("dictation disabled: need %s and model %s", a.cfg.Dictation.WhisperBin, a.cfg.Dictation.Model)
		} else {
			cli.dictation = dc
		}
	}

	ui := display.NewUI(cli.slots, cli.status, display.Hooks{
		Stop: st.disp.Stop,
		Word: func(w string) { cli.echoWord(ctx, w) },
	})
	cli.ui = ui
	cli.out = ui
	cli.notifier = conversation.NewPromptNotifier(a.log, ui.PrintChat, ui.PrintUrgent)

	if _, err := cli.book.Bootstrap(ctx); err != nil {
		return fmt.Errorf("first run: %w", err)
	}
	cli.selectFirstCategory(ctx)

	fmt.Println(display.RenderBanner(
		"Type a phrase and press Enter to say it. Esc stops speech.",
		"Alt+1..5 switch slots. Type /help for commands, /quit to exit.",
	))

	go cli.watchOnline(ctx)
	go func() {
		ui.WaitReady()
		cli.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		a.log.Error("display: %v", err)
	}
	cancel()
	st.disp.Stop()
	return nil
}

// output is the subset of *display.UI the prompt writes through.
type output interface {
	PrintChat(text string)
	PrintHeader(text string)
	PrintItem(n int, text, meta string)
	PrintHint(text string)
	PrintUrgent(text string)
	PrintVoice(text string)
	SetInput(text string)
	Quit()
}

var _ output = (*display.UI)(nil)

type cliApp struct {
	book      *phrasebook.Book
	disp      *speech.Dispatcher
	parser    domain.IntentParser
	notifier  domain.Notifier
	probe     domain.ConnectivityProbe
	dictation *speech.Dictation // nil when voice input is disabled
	feedback  *feedback.Client
	voiceFor  func(voice string) domain.Vocalizer
	slots     *compose.Slots
	ui        *display.UI
	out       output
	email     string
	log       *logger.Logger

	preferOnline atomic.Bool
	wordEcho     atomic.Bool
	online       atomic.Bool
	speaking     atomic.Bool

	mu         sync.Mutex
	category   domain.Category    // current category
	categories []domain.Category  // last listed, for /cat N
	statements []domain.Statement // last listed, for /N
}

// onState is the dispatcher's listener. It must not block.
func (a *cliApp) onState(s domain.SpeechState) {
	a.speaking.Store(s.Speaking())
	a.log.Debug("speech state: %s", s)
}

// status snapshots the bar contents. Called from the UI goroutine.
func (a *cliApp) status() display.Status {
	a.mu.Lock()
	cat := a.category.Label
	a.mu.Unlock()
	return display.Status{
		Slot:         a.slots.Active(),
		Slots:        a.slots.Len(),
		Category:     cat,
		PreferOnline: a.preferOnline.Load(),
		Online:       a.online.Load(),
		Speaking:     a.speaking.Load(),
		WordEcho:     a.wordEcho.Load(),
	}
}

func (a *cliApp) watchOnline(ctx context.Context) {
	if a.probe == nil {
		return
	}
	t := time.NewTicker(onlineRefresh)
	defer t.Stop()
	for {
		a.online.Store(a.probe.Online(ctx))
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *cliApp) run(ctx context.Context) {
	inputCh := a.ui.InputChan()
	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-inputCh:
			if !ok {
				return
			}
			if a.handleLine(ctx, input) {
				return
			}
		}
	}
}

// handleLine parses and executes one prompt line. It reports whether the
// user asked to quit.
func (a *cliApp) handleLine(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	intent, err := a.parser.Parse(ctx, input)
	if err != nil {
		a.log.Error("parsing input: %v", err)
		return false
	}
	a.log.Debug("intent: %s (payload=%q index=%d)", intent.Type, intent.Payload, intent.Index)
	return a.handleIntent(ctx, intent)
}

func (a *cliApp) handleIntent(ctx context.Context, in *domain.Intent) bool {
	switch in.Type {
	case domain.IntentSay:
		a.say(ctx, in.Payload)
	case domain.IntentSayStatement:
		a.sayStatement(ctx, in.Index)
	case domain.IntentStop:
		a.disp.Stop()
	case domain.IntentClear:
		a.slots.Set("")
		a.out.SetInput("")
	case domain.IntentToggleOnline:
		on := !a.preferOnline.Load()
		a.preferOnline.Store(on)
		a.out.PrintHint(fmt.Sprintf("online voice %s", onOff(on)))
	case domain.IntentToggleWordEcho:
		on := !a.wordEcho.Load()
		a.wordEcho.Store(on)
		a.out.PrintHint(fmt.Sprintf("say after each word %s", onOff(on)))
	case domain.IntentSwitchSlot:
		a.switchSlot(in.Index)
	case domain.IntentListSlots:
		a.out.PrintHeader("Slots:")
		for _, n := range a.slots.Names("(empty)") {
			a.out.PrintHint(n)
		}
	case domain.IntentListCategories:
		a.listCategories(ctx)
	case domain.IntentSelectCategory:
		a.selectCategory(ctx, in.Index)
	case domain.IntentListStatements:
		a.listStatements(ctx)
	case domain.IntentSaveStatement:
		a.saveStatement(ctx, in.Payload)
	case domain.IntentDeleteStatement:
		a.deleteStatement(ctx, in.Index)
	case domain.IntentMoveStatement:
		a.moveStatement(ctx, in.Index, in.Target)
	case domain.IntentCreateCategory:
		a.createCategory(ctx, in.Payload)
	case domain.IntentRenameCategory:
		a.renameCategory(ctx, in.Index, in.Payload)
	case domain.IntentDeleteCategory:
		a.deleteCategory(ctx, in.Index)
	case domain.IntentSearch:
		a.search(ctx, in.Payload)
	case domain.IntentVoice:
		a.setVoice(in.Payload)
	case domain.IntentListen:
		a.listen(ctx)
	case domain.IntentFeedback:
		a.sendFeedback(ctx, in.Payload)
	case domain.IntentHelp:
		a.showHelp()
	case domain.IntentQuit:
		a.disp.Stop()
		return true
	default:
		a.out.PrintUrgent(fmt.Sprintf("unknown command %q, type /help", in.Payload))
	}
	return false
}

// ── Speaking ─────────────────────────────────────────────────────

func (a *cliApp) say(ctx context.Context, text string) {
	a.slots.Set(text)
	u, err := a.book.Say(ctx, text, a.preferOnline.Load())
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("cannot speak: %v", err))
		return
	}
	a.slots.Commit()
	a.out.PrintChat(u.Text)
	go a.report(u)
}

// echoWord speaks a just-completed word when word echo is on.
func (a *cliApp) echoWord(ctx context.Context, word string) {
	if !a.wordEcho.Load() {
		return
	}
	if _, err := a.disp.Speak(ctx, word, a.preferOnline.Load()); err != nil {
		a.log.Debug("word echo: %v", err)
	}
}

func (a *cliApp) sayStatement(ctx context.Context, n int) {
	st, ok := a.statementAt(n)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no statement %d, type /list", n))
		return
	}
	u, err := a.book.SayStatement(ctx, st.ID, a.preferOnline.Load())
	if u == nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("cannot speak: %v", err))
		return
	}
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("use count not saved: %v", err))
	}
	a.out.PrintChat(u.Text)
	go a.report(u)
}

// report surfaces a failed utterance. Interruptions are expected.
func (a *cliApp) report(u *speech.Utterance) {
	engine, err := u.Wait()
	switch {
	case err == nil:
		a.log.Debug("spoken by %s engine", engine)
	case errors.Is(err, domain.ErrInterrupted):
	default:
		a.out.PrintUrgent(fmt.Sprintf("speech failed: %v", err))
	}
}

func (a *cliApp) setVoice(voice string) {
	if a.voiceFor == nil {
		return
	}
	if voice == "" {
		a.out.PrintHint("usage: /voice NAME (provider voice or language)")
		return
	}
	remote := a.voiceFor(voice)
	if remote == nil {
		a.out.PrintUrgent("online voice is not configured")
		return
	}
	a.disp.SetRemote(remote)
	a.out.PrintHint("online voice set to " + voice)
}

func (a *cliApp) listen(ctx context.Context) {
	if a.dictation == nil {
		a.out.PrintUrgent("voice input is disabled (enable [Dictation] in the config)")
		return
	}
	a.out.PrintHint("listening...")
	go func() {
		text, err := a.dictation.Listen(ctx)
		if err != nil {
			if errors.Is(err, speech.ErrNothingHeard) {
				a.out.PrintHint("nothing heard")
			} else if ctx.Err() == nil {
				a.out.PrintUrgent(fmt.Sprintf("dictation failed: %v", err))
			}
			return
		}
		a.out.PrintVoice(text)
		a.slots.Set(text)
		a.out.SetInput(text)
	}()
}

func (a *cliApp) sendFeedback(ctx context.Context, text string) {
	if a.email == "" {
		a.out.PrintUrgent("set [Feedback] Email in the config to send feedback")
		return
	}
	go func() {
		if err := a.feedback.Submit(ctx, a.email, text); err != nil {
			a.notifier.NotifyUrgent(ctx, fmt.Sprintf("feedback not sent: %v", err))
			return
		}
		a.notifier.Notify(ctx, "thank you, feedback sent")
	}()
}

// ── Slots ────────────────────────────────────────────────────────

func (a *cliApp) switchSlot(n int) {
	text, err := a.slots.Switch(n-1, a.slots.Text())
	if err != nil {
		a.out.PrintUrgent(fmt.Sprintf("%v (1-%d)", err, a.slots.Len()))
		return
	}
	a.out.SetInput(text)
}

// ── Categories and statements ────────────────────────────────────

func (a *cliApp) selectFirstCategory(ctx context.Context) {
	cats, err := a.book.Categories(ctx)
	if err != nil || len(cats) == 0 {
		return
	}
	a.mu.Lock()
	a.category = cats[0]
	a.categories = cats
	a.mu.Unlock()
}

func (a *cliApp) currentCategory() domain.Category {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.category
}

func (a *cliApp) categoryAt(n int) (domain.Category, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 1 || n > len(a.categories) {
		return domain.Category{}, false
	}
	return a.categories[n-1], true
}

func (a *cliApp) statementAt(n int) (domain.Statement, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 1 || n > len(a.statements) {
		return domain.Statement{}, false
	}
	return a.statements[n-1], true
}

func (a *cliApp) listCategories(ctx context.Context) {
	cats, err := a.book.Categories(ctx)
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("cannot list categories: %v", err))
		return
	}
	cur := a.currentCategory()
	a.mu.Lock()
	a.categories = cats
	a.mu.Unlock()

	a.out.PrintHeader("Categories:")
	for i, c := range cats {
		meta := ""
		if c.ID == cur.ID {
			meta = "(current)"
		}
		a.out.PrintItem(i+1, c.Label, meta)
	}
	a.out.PrintHint("/cat N to open a category")
}

func (a *cliApp) selectCategory(ctx context.Context, n int) {
	c, ok := a.categoryAt(n)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no category %d, type /cats", n))
		return
	}
	a.mu.Lock()
	a.category = c
	a.mu.Unlock()
	a.listStatements(ctx)
}

func (a *cliApp) listStatements(ctx context.Context) {
	cur := a.currentCategory()
	if cur.ID == "" {
		a.out.PrintUrgent("no category selected, type /cats")
		return
	}
	sts, err := a.book.Statements(ctx, cur.ID)
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("cannot list statements: %v", err))
		return
	}
	a.mu.Lock()
	a.statements = sts
	a.mu.Unlock()

	a.out.PrintHeader(cur.Label + ":")
	if len(sts) == 0 {
		a.out.PrintHint("no statements yet, /save TEXT to add one")
		return
	}
	for i, st := range sts {
		a.out.PrintItem(i+1, st.Text, fmt.Sprintf("x%d", st.Rating))
	}
	a.out.PrintHint("/N to say statement N")
}

func (a *cliApp) saveStatement(ctx context.Context, text string) {
	if text == "" {
		text = a.slots.Text()
	}
	cur := a.currentCategory()
	if cur.ID == "" {
		a.out.PrintUrgent("no category selected, type /cats")
		return
	}
	st, err := a.book.AddStatement(ctx, text, cur.ID)
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("not saved: %v", err))
		return
	}
	a.out.PrintHint(fmt.Sprintf("saved to %s: %s", cur.Label, st.Text))
}

func (a *cliApp) deleteStatement(ctx context.Context, n int) {
	st, ok := a.statementAt(n)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no statement %d, type /list", n))
		return
	}
	if err := a.book.DeleteStatement(ctx, st.ID); err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("not deleted: %v", err))
		return
	}
	a.out.PrintHint("deleted: " + st.Text)
	a.listStatements(ctx)
}

func (a *cliApp) moveStatement(ctx context.Context, n, target int) {
	st, ok := a.statementAt(n)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no statement %d, type /list", n))
		return
	}
	c, ok := a.categoryAt(target)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no category %d, type /cats", target))
		return
	}
	if err := a.book.MoveStatement(ctx, st.ID, c.ID); err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("not moved: %v", err))
		return
	}
	a.out.PrintHint(fmt.Sprintf("moved to %s: %s", c.Label, st.Text))
	a.listStatements(ctx)
}

func (a *cliApp) createCategory(ctx context.Context, label string) {
	c, err := a.book.CreateCategory(ctx, label)
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("not created: %v", err))
		return
	}
	a.mu.Lock()
	a.category = *c
	a.mu.Unlock()
	a.out.PrintHint("created category " + c.Label)
	a.listCategories(ctx)
}

func (a *cliApp) renameCategory(ctx context.Context, n int, label string) {
	c, ok := a.categoryAt(n)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no category %d, type /cats", n))
		return
	}
	if err := a.book.RenameCategory(ctx, c.ID, label); err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("not renamed: %v", err))
		return
	}
	a.mu.Lock()
	if a.category.ID == c.ID {
		a.category.Label = strings.TrimSpace(label)
	}
	a.mu.Unlock()
	a.listCategories(ctx)
}

func (a *cliApp) deleteCategory(ctx context.Context, n int) {
	c, ok := a.categoryAt(n)
	if !ok {
		a.out.PrintUrgent(fmt.Sprintf("no category %d, type /cats", n))
		return
	}
	if err := a.book.DeleteCategory(ctx, c.ID); err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("not deleted: %v", err))
		return
	}
	a.out.PrintHint("deleted category " + c.Label)

	a.mu.Lock()
	wasCurrent := a.category.ID == c.ID
	if wasCurrent {
		a.category = domain.Category{}
		a.statements = nil
	}
	a.mu.Unlock()
	if wasCurrent {
		a.selectFirstCategory(ctx)
	}
	a.listCategories(ctx)
}

func (a *cliApp) search(ctx context.Context, query string) {
	matches, err := a.book.Search(ctx, query)
	if err != nil {
		a.notifier.NotifyUrgent(ctx, fmt.Sprintf("search failed: %v", err))
		return
	}
	sts := make([]domain.Statement, len(matches))
	for i, m := range matches {
		sts[i] = m.Statement
	}
	a.mu.Lock()
	a.statements = sts
	a.mu.Unlock()

	a.out.PrintHeader(fmt.Sprintf("Found %d:", len(matches)))
	for i, m := range matches {
		a.out.PrintItem(i+1, m.Statement.Text, "["+m.Category+"]")
	}
}

func (a *cliApp) showHelp() {
	a.out.PrintHeader("Type any text and press Enter to say it. Commands:")
	for _, l := range []string{
		"/stop  (or Esc)     Stop speaking",
		"/clear              Clear the active slot",
		"/online             Toggle the online voice",
		"/word               Toggle saying each word as it is typed",
		"/slots, /slot N     Show or switch speech slots (also Alt+N)",
		"/cats, /cat N       List or open categories",
		"/list               List statements of the current category",
		"/N                  Say statement N",
		"/save [TEXT]        Save TEXT (or the slot) to the current category",
		"/del N, /move N M   Delete statement N or move it to category M",
		"/newcat LABEL       Create a category",
		"/rencat N LABEL     Rename category N",
		"/delcat N           Delete category N",
		"/find TEXT          Search all statements",
		"/voice NAME         Choose the online voice",
		"/listen             Dictate into the active slot",
		"/feedback TEXT      Send feedback",
		"/quit               Exit",
		"//TEXT              Say TEXT starting with a slash",
	} {
		a.out.PrintHint(l)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
