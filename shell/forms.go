package shell

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"vogue/localstore"
	"vogue/models"
	"vogue/remote"

	"go.uber.org/zap"
)

const OfflineActionsKey = "offline_actions"

// ErrQueued is returned by SubmitForm while offline; the form is sent once the
// session is back online.
var ErrQueued = errors.New("shell: queued until online")

// Form is an AJAX form submission.
type Form struct {
	ID     string     `json:"id,omitempty"`
	Action string     `json:"action"`
	Method string     `json:"method,omitempty"`
	Values url.Values `json:"values"`
}

type offlineAction struct {
	URL      string `json:"url"`
	Method   string `json:"method"`
	Body     string `json:"body"`
	QueuedAt int64  `json:"queuedAt"`
}

// SubmitForm posts f and turns the JSON answer into a notification.
func (s *Shell) SubmitForm(ctx context.Context, f Form) (remote.FormResult, error) {
	formID := f.ID
	if formID == "" {
		formID = "unknown"
	}
	s.Analytics.Track(ctx, "form_submit", map[string]any{"formId": formID, "action": f.Action})

	if !s.Online() {
		if err := s.queueOffline(ctx, f); err != nil {
			return remote.FormResult{}, err
		}
		s.Notify.Show("Нет соединения. Форма будет отправлена позже", models.KindWarning)
		return remote.FormResult{}, ErrQueued
	}

	res, err := s.remote.SubmitForm(ctx, f.Method, f.Action, f.Values)
	if err != nil {
		s.log.Warn("form submit failed", zap.String("action", f.Action), zap.Error(err))
		s.Notify.Show("Ошибка соединения", models.KindError)
		return res, fmt.Errorf("submit %s: %w", f.Action, err)
	}
	if res.Success {
		s.Notify.Show(orDefault(res.Message, "Успешно!"), models.KindSuccess)
	} else {
		s.Notify.Show(orDefault(res.Message, "Ошибка!"), models.KindError)
	}
	return res, nil
}

func (s *Shell) queueOffline(ctx context.Context, f Form) error {
	queue, err := s.offlineQueue(ctx)
	if err != nil {
		return err
	}
	queue = append(queue, offlineAction{
		URL:      f.Action,
		Method:   f.Method,
		Body:     f.Values.Encode(),
		QueuedAt: s.now().UnixMilli(),
	})
	if err := localstore.SetJSON(ctx, s.storage, OfflineActionsKey, queue); err != nil {
		return fmt.Errorf("queue offline form: %w", err)
	}
	return nil
}

func (s *Shell) offlineQueue(ctx context.Context) ([]offlineAction, error) {
	var queue []offlineAction
	err := localstore.GetJSON(ctx, s.storage, OfflineActionsKey, &queue)
	switch {
	case err == nil, errors.Is(err, localstore.ErrNotFound):
		return queue, nil
	case errors.Is(err, localstore.ErrCorrupt):
		s.log.Warn("offline queue unreadable, dropping", zap.Error(err))
		return nil, nil
	}
	return nil, fmt.Errorf("load offline queue: %w", err)
}

// GoOnline marks the session online and replays queued forms.
func (s *Shell) GoOnline(ctx context.Context) {
	s.mu.Lock()
	s.online = true
	s.mu.Unlock()
	s.Notify.Show("Соединение восстановлено", models.KindSuccess)
	s.emit(EventOnline, nil)
	s.ReplayOffline(ctx)
}

func (s *Shell) GoOffline() {
	s.mu.Lock()
	s.online = false
	s.mu.Unlock()
	s.Notify.Show("Вы offline. Некоторые функции ограничены", models.KindWarning)
	s.emit(EventOffline, nil)
}

// ReplayOffline sends every queued form once, best-effort, and clears the
// queue. It returns how many were delivered.
func (s *Shell) ReplayOffline(ctx context.Context) int {
	queue, err := s.offlineQueue(ctx)
	if err != nil {
		s.log.Error("offline replay skipped", zap.Error(err))
		return 0
	}
	if len(queue) == 0 {
		return 0
	}
	s.Notify.Show("Синхронизация оффлайн данных...", models.KindInfo)
	sent := 0
	for _, a := range queue {
		values, err := url.ParseQuery(a.Body)
		if err != nil {
			s.log.Warn("dropping malformed offline action", zap.String("url", a.URL), zap.Error(err))
			continue
		}
		if _, err := s.remote.SubmitForm(ctx, a.Method, a.URL, values); err != nil {
			s.log.Warn("offline action failed", zap.String("url", a.URL), zap.Error(err))
			continue
		}
		sent++
	}
	if err := s.storage.Remove(ctx, OfflineActionsKey); err != nil {
		s.log.Error("clear offline queue failed", zap.Error(err))
	}
	s.Notify.Show("Синхронизация завершена", models.KindSuccess)
	return sent
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
