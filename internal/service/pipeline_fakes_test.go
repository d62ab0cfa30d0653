package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-widgetchat-be/internal/dto"
	"ai-widgetchat-be/internal/entity"
	"ai-widgetchat-be/internal/repository/contract"
	"ai-widgetchat-be/internal/repository/specification"
	"ai-widgetchat-be/internal/repository/unitofwork"
	"ai-widgetchat-be/pkg/llm"

	"github.com/google/uuid"
)

// fakeStore is an in-memory backing store shared by all fake repositories of
// one test. Everything lives in slices so tests can assert on contents
// directly.
type fakeStore struct {
	mu sync.Mutex

	conversations []*entity.Conversation
	messages      []*entity.ConversationMessage
	convTags      []*entity.ConversationTag
	globalTags    []*entity.GlobalTag
	mappings      []*entity.ConversationGlobalTag
	widgets       []*entity.Widget
	items         []*entity.WidgetDataItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

type fakeUnitOfWork struct {
	store *fakeStore

	begun      int
	committed  int
	rolledBack int
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { u.begun++; return nil }
func (u *fakeUnitOfWork) Commit() error                   { u.committed++; return nil }
func (u *fakeUnitOfWork) Rollback() error                 { u.rolledBack++; return nil }

func (u *fakeUnitOfWork) ConversationRepository() contract.ConversationRepository {
	return &fakeConversationRepo{store: u.store}
}
func (u *fakeUnitOfWork) ConversationMessageRepository() contract.ConversationMessageRepository {
	return &fakeMessageRepo{store: u.store}
}
func (u *fakeUnitOfWork) ConversationTagRepository() contract.ConversationTagRepository {
	return &fakeConvTagRepo{store: u.store}
}
func (u *fakeUnitOfWork) GlobalTagRepository() contract.GlobalTagRepository {
	return &fakeGlobalTagRepo{store: u.store}
}
func (u *fakeUnitOfWork) ConversationGlobalTagRepository() contract.ConversationGlobalTagRepository {
	return &fakeMappingRepo{store: u.store}
}
func (u *fakeUnitOfWork) WidgetRepository() contract.WidgetRepository {
	return &fakeWidgetRepo{store: u.store}
}
func (u *fakeUnitOfWork) WidgetDataItemRepository() contract.WidgetDataItemRepository {
	return &fakeItemRepo{store: u.store}
}

type fakeUowFactory struct {
	store *fakeStore
	last  *fakeUnitOfWork
}

func newFakeUowFactory(store *fakeStore) *fakeUowFactory {
	return &fakeUowFactory{store: store}
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	f.last = &fakeUnitOfWork{store: f.store}
	return f.last
}

// The match helpers interpret the subset of specifications the services
// actually pass; ordering and pagination are ignored.
func matchConversation(c *entity.Conversation, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if c.Id != sp.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range sp.IDs {
				if c.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func matchWidget(w *entity.Widget, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if w.Id != sp.ID {
				return false
			}
		case specification.ByGlobalTagID:
			if w.GlobalTagId != sp.GlobalTagID {
				return false
			}
		case specification.ByStatus:
			if w.Status != sp.Status {
				return false
			}
		}
	}
	return true
}

type fakeConversationRepo struct{ store *fakeStore }

func (r *fakeConversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.conversations = append(r.store.conversations, c)
	return nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, c *entity.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.conversations {
		if existing.Id == c.Id {
			r.store.conversations[i] = c
			return nil
		}
	}
	return fmt.Errorf("conversation %s not found", c.Id)
}

func (r *fakeConversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.conversations[:0]
	for _, c := range r.store.conversations {
		if c.Id != id {
			out = append(out, c)
		}
	}
	r.store.conversations = out
	return nil
}

func (r *fakeConversationRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.conversations {
		if matchConversation(c, specs) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range r.store.conversations {
		if matchConversation(c, specs) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) FindBySourceWidgetId(ctx context.Context, widgetId uuid.UUID) ([]*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range r.store.conversations {
		if c.SourceWidgetId != nil && *c.SourceWidgetId == widgetId {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) Create(ctx context.Context, m *entity.ConversationMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messages = append(r.store.messages, m)
	return nil
}

func (r *fakeMessageRepo) FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ConversationMessage
	for _, m := range r.store.messages {
		if m.ConversationId == conversationId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountByConversationId(ctx context.Context, conversationId uuid.UUID) (int64, error) {
	all, _ := r.FindAllByConversationId(ctx, conversationId)
	return int64(len(all)), nil
}

func (r *fakeMessageRepo) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ConversationId != conversationId {
			out = append(out, m)
		}
	}
	r.store.messages = out
	return nil
}

type fakeConvTagRepo struct{ store *fakeStore }

func (r *fakeConvTagRepo) CreateBulk(ctx context.Context, tags []*entity.ConversationTag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.convTags = append(r.store.convTags, tags...)
	return nil
}

func (r *fakeConvTagRepo) FindAll(ctx context.Context) ([]*entity.ConversationTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]*entity.ConversationTag(nil), r.store.convTags...), nil
}

func (r *fakeConvTagRepo) FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ConversationTag
	for _, t := range r.store.convTags {
		if t.ConversationId == conversationId {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeConvTagRepo) FindAllByConversationIds(ctx context.Context, conversationIds []uuid.UUID) ([]*entity.ConversationTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(conversationIds))
	for _, id := range conversationIds {
		wanted[id] = true
	}
	var out []*entity.ConversationTag
	for _, t := range r.store.convTags {
		if wanted[t.ConversationId] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeConvTagRepo) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.convTags[:0]
	for _, t := range r.store.convTags {
		if t.ConversationId != conversationId {
			out = append(out, t)
		}
	}
	r.store.convTags = out
	return nil
}

type fakeGlobalTagRepo struct{ store *fakeStore }

func (r *fakeGlobalTagRepo) Create(ctx context.Context, tag *entity.GlobalTag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.globalTags = append(r.store.globalTags, tag)
	return nil
}

func (r *fakeGlobalTagRepo) FindById(ctx context.Context, id uuid.UUID) (*entity.GlobalTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.globalTags {
		if t.Id == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeGlobalTagRepo) FindByExactTag(ctx context.Context, tag string) (*entity.GlobalTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.globalTags {
		if t.Tag == tag {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeGlobalTagRepo) FindAll(ctx context.Context) ([]*entity.GlobalTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]*entity.GlobalTag(nil), r.store.globalTags...), nil
}

func (r *fakeGlobalTagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.globalTags[:0]
	for _, t := range r.store.globalTags {
		if t.Id != id {
			out = append(out, t)
		}
	}
	r.store.globalTags = out
	return nil
}

type fakeMappingRepo struct{ store *fakeStore }

func (r *fakeMappingRepo) CreateBulk(ctx context.Context, mappings []*entity.ConversationGlobalTag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.mappings = append(r.store.mappings, mappings...)
	return nil
}

func (r *fakeMappingRepo) FindAllByGlobalTagId(ctx context.Context, globalTagId uuid.UUID) ([]*entity.ConversationGlobalTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ConversationGlobalTag
	for _, m := range r.store.mappings {
		if m.GlobalTagId == globalTagId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMappingRepo) FindAllByConversationId(ctx context.Context, conversationId uuid.UUID) ([]*entity.ConversationGlobalTag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ConversationGlobalTag
	for _, m := range r.store.mappings {
		if m.ConversationId == conversationId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMappingRepo) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.mappings[:0]
	for _, m := range r.store.mappings {
		if m.ConversationId != conversationId {
			out = append(out, m)
		}
	}
	r.store.mappings = out
	return nil
}

func (r *fakeMappingRepo) DeleteByGlobalTagId(ctx context.Context, globalTagId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.mappings[:0]
	for _, m := range r.store.mappings {
		if m.GlobalTagId != globalTagId {
			out = append(out, m)
		}
	}
	r.store.mappings = out
	return nil
}

type fakeWidgetRepo struct{ store *fakeStore }

func (r *fakeWidgetRepo) Create(ctx context.Context, w *entity.Widget) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.widgets = append(r.store.widgets, w)
	return nil
}

func (r *fakeWidgetRepo) Update(ctx context.Context, w *entity.Widget) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.widgets {
		if existing.Id == w.Id {
			r.store.widgets[i] = w
			return nil
		}
	}
	return fmt.Errorf("widget %s not found", w.Id)
}

func (r *fakeWidgetRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorDetail string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.widgets {
		if w.Id == id {
			w.Status = status
			w.ErrorDetail = errorDetail
			return nil
		}
	}
	return fmt.Errorf("widget %s not found", id)
}

func (r *fakeWidgetRepo) TouchLastOpened(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.widgets {
		if w.Id == id {
			w.LastOpenedAt = &at
			return nil
		}
	}
	return nil
}

func (r *fakeWidgetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.widgets[:0]
	for _, w := range r.store.widgets {
		if w.Id != id {
			out = append(out, w)
		}
	}
	r.store.widgets = out
	return nil
}

func (r *fakeWidgetRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Widget, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.widgets {
		if matchWidget(w, specs) {
			return w, nil
		}
	}
	return nil, nil
}

func (r *fakeWidgetRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Widget, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Widget
	for _, w := range r.store.widgets {
		if matchWidget(w, specs) {
			out = append(out, w)
		}
	}
	return out, nil
}

type fakeItemRepo struct{ store *fakeStore }

func (r *fakeItemRepo) Create(ctx context.Context, item *entity.WidgetDataItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.items = append(r.store.items, item)
	return nil
}

func (r *fakeItemRepo) CreateBulk(ctx context.Context, items []*entity.WidgetDataItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.items = append(r.store.items, items...)
	return nil
}

func (r *fakeItemRepo) Update(ctx context.Context, item *entity.WidgetDataItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.items {
		if existing.Id == item.Id {
			r.store.items[i] = item
			return nil
		}
	}
	return fmt.Errorf("item %s not found", item.Id)
}

func (r *fakeItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.items[:0]
	for _, it := range r.store.items {
		if it.Id != id {
			out = append(out, it)
		}
	}
	r.store.items = out
	return nil
}

func (r *fakeItemRepo) DeleteByWidgetId(ctx context.Context, widgetId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.store.items[:0]
	for _, it := range r.store.items {
		if it.WidgetId != widgetId {
			out = append(out, it)
		}
	}
	r.store.items = out
	return nil
}

func (r *fakeItemRepo) FindById(ctx context.Context, id uuid.UUID) (*entity.WidgetDataItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, it := range r.store.items {
		if it.Id == id {
			return it, nil
		}
	}
	return nil, nil
}

func (r *fakeItemRepo) FindAllByWidgetId(ctx context.Context, widgetId uuid.UUID) ([]*entity.WidgetDataItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.WidgetDataItem
	for _, it := range r.store.items {
		if it.WidgetId == widgetId {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ExistsByWidgetAndSource(ctx context.Context, widgetId, conversationId uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, it := range r.store.items {
		if it.WidgetId == widgetId && it.SourceConversationId != nil && *it.SourceConversationId == conversationId {
			return true, nil
		}
	}
	return false, nil
}

// fakeLLM replays canned responses in order. Streaming splits the response
// into small fragments so marker-boundary handling gets exercised.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
	chunkSize int
}

func (f *fakeLLM) next(prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeLLM: no canned response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.next(historyKey(history))
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) (string, error) {
	resp, err := f.next(historyKey(history))
	if err != nil {
		return "", err
	}
	size := f.chunkSize
	if size <= 0 {
		size = 3
	}
	for start := 0; start < len(resp); start += size {
		end := start + size
		if end > len(resp) {
			end = len(resp)
		}
		if err := onToken(resp[start:end]); err != nil {
			return "", err
		}
	}
	return resp, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.next(prompt)
}

func historyKey(history []llm.Message) string {
	parts := make([]string, 0, len(history))
	for _, m := range history {
		parts = append(parts, m.Role+": "+m.Content)
	}
	return strings.Join(parts, "\n")
}

// capturingPublisher records every pipeline job instead of queueing it.
type capturingPublisher struct {
	mu   sync.Mutex
	jobs []dto.PipelineJob
}

func (p *capturingPublisher) Publish(ctx context.Context, job dto.PipelineJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *capturingPublisher) jobsOfType(jobType string) []dto.PipelineJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []dto.PipelineJob
	for _, j := range p.jobs {
		if j.Type == jobType {
			out = append(out, j)
		}
	}
	return out
}

// noopLogger satisfies ILogger without writing anywhere.
type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }
