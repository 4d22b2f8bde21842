package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/client/sync"
	"github.com/taskvault/taskvault/internal/common"
)

func (a *App) add(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}

	title, err := getSimpleText(a.reader, "Task title", os.Stdout)
	if err != nil || title == "" {
		fmt.Println("A title is required")
		return
	}
	notes, err := GetMultiline(a.reader, "Notes (optional)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	view, err := a.store.Create(ctx, a.userName, models.TaskFields{Title: title, Notes: notes})
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Added %s\n", shortID(view.Id))
	a.afterMutation(ctx)
}

func (a *App) list(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}

	tasks, err := a.store.ListByOwner(ctx, a.userName, false)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return
	}

	for _, task := range tasks {
		mark := " "
		if task.Payload.Done {
			mark = "x"
		}
		suffix := ""
		if task.Corrupt {
			suffix = " (unreadable)"
		}
		fmt.Printf("[%s] %s  %s%s\n", mark, shortID(task.Id), task.Payload.Title, suffix)
	}
	if a.engine.Unsynced(a.userName) {
		fmt.Println("* there are unsynced changes")
	}
}

func (a *App) done(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: done <id>")
		return
	}
	id, ok := a.resolveID(ctx, args[0])
	if !ok {
		return
	}

	done := true
	if _, err := a.store.Update(ctx, a.userName, id, models.TaskPatch{Done: &done}); err != nil {
		log.Println(err.Error())
		return
	}
	a.afterMutation(ctx)
}

func (a *App) remove(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: rm <id>")
		return
	}
	id, ok := a.resolveID(ctx, args[0])
	if !ok {
		return
	}

	if err := a.store.SoftDelete(ctx, a.userName, id); err != nil {
		log.Println(err.Error())
		return
	}
	a.afterMutation(ctx)
}

// sync is the manual, user-initiated sync: its errors surface.
func (a *App) sync(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}

	summary, err := a.engine.Sync(ctx, a.userName, sync.Options{Manual: true})
	if err != nil {
		if errors.Is(err, common.ErrSyncBusy) {
			fmt.Println("A sync is already running")
			return
		}
		log.Printf("Sync failed: %s", err.Error())
		return
	}
	fmt.Printf("Synced: %d pulled, %d updated, %d pushed\n", summary.Pulled, summary.Updated, summary.Pushed)
}

// watch opens the notification subscription and the poll fallback; changes
// made on other devices show up without manual syncs.
func (a *App) watch(ctx context.Context) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return
	}
	if a.watchStop != nil {
		fmt.Println("Already watching")
		return
	}

	sub, err := a.notifier.Subscribe(ctx, a.userName, nil)
	if err != nil {
		log.Printf("Subscribe failed, polling only: %s", err.Error())
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchStop = cancel
	a.watchSub = sub
	go a.notifier.Poll(watchCtx, a.userName, a.config.PollInterval)
	fmt.Println("Watching for changes")
}

func (a *App) stopWatch() {
	if a.watchStop != nil {
		a.watchStop()
		a.watchStop = nil
	}
	if a.watchSub != nil {
		a.watchSub.Cancel()
		a.watchSub = nil
	}
}

// afterMutation runs a background sync and a change ping. Failures are
// logged only; the edit is safe locally and the next trigger retries.
func (a *App) afterMutation(ctx context.Context) {
	if _, err := a.engine.Sync(ctx, a.userName, sync.Options{}); err != nil && !errors.Is(err, common.ErrSyncBusy) {
		log.Printf("Sync failed (will retry): %s", err.Error())
		return
	}
	if err := a.notifier.Publish(ctx, a.userName); err != nil {
		a.logger.Warn(ctx, "publish failed", "error", err)
	}
}

// resolveID matches a full id or a unique prefix against the owner's
// tasks.
func (a *App) resolveID(ctx context.Context, prefix string) (string, bool) {
	if !a.isLoggedIn() {
		fmt.Println("Log in first")
		return "", false
	}

	tasks, err := a.store.ListByOwner(ctx, a.userName, false)
	if err != nil {
		log.Println(err.Error())
		return "", false
	}

	var matches []string
	for _, task := range tasks {
		if strings.HasPrefix(task.Id, prefix) {
			matches = append(matches, task.Id)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], true
	case 0:
		fmt.Println("No task matches", prefix)
		return "", false
	default:
		fmt.Println("Ambiguous id, be more specific:", prefix)
		return "", false
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
