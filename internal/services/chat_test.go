package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

type stubAIClient struct {
	reply    string
	replyErr error
	calls    int
}

func (s *stubAIClient) CompanionReply(ctx context.Context, model *types.AIModel, history []*types.ChatMessage, userMessage string) (string, error) {
	s.calls++
	return s.reply, s.replyErr
}

func (s *stubAIClient) GeneratePersona(ctx context.Context, prompt string) (*PersonaDraft, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

type recordingChatNotifier struct {
	created []uuid.UUID
}

func (r *recordingChatNotifier) MessageCreated(roomID uuid.UUID, memberID uuid.UUID, msg *types.ChatMessage) {
	r.created = append(r.created, msg.ID)
}

func (r *recordingChatNotifier) RoomActivity(memberID uuid.UUID, roomID uuid.UUID, msg *types.ChatMessage) {
}

type chatFixture struct {
	db       *gorm.DB
	chat     ChatService
	ai       *stubAIClient
	notifier *recordingChatNotifier
	userRepo repos.UserRepo
	genRepo  repos.GenerationRepo
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := testDB(t)
	log := testLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	genRepo := repos.NewGenerationRepo(db, log)
	roomRepo := repos.NewChatRoomRepo(db, log)
	messageRepo := repos.NewChatMessageRepo(db, log)
	modelRepo := repos.NewAIModelRepo(db, log)
	ledger := NewLedgerService(db, log, userRepo, genRepo)
	ai := &stubAIClient{reply: "Hello there!"}
	notifier := &recordingChatNotifier{}
	chat := NewChatService(db, log, roomRepo, messageRepo, modelRepo, genRepo, ledger, ai, notifier)
	return &chatFixture{db: db, chat: chat, ai: ai, notifier: notifier, userRepo: userRepo, genRepo: genRepo}
}

func TestFindOrCreateRoomIsIdempotent(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, user.ID, false)
	ctx := context.Background()

	first, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)
	second, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateRoomUnknownModel(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	_, err := f.chat.FindOrCreateRoom(context.Background(), user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestFindOrCreateRoomHidesPrivateModel(t *testing.T) {
	f := newChatFixture(t)
	owner := seedUser(t, f.db, 100)
	stranger := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, owner.ID, true)
	ctx := context.Background()

	_, err := f.chat.FindOrCreateRoom(ctx, stranger.ID, model.ID)
	assert.ErrorIs(t, err, ErrModelNotFound)

	// the owner still gets a room
	_, err = f.chat.FindOrCreateRoom(ctx, owner.ID, model.ID)
	assert.NoError(t, err)
}

func TestSendMessageHappyPath(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, user.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)

	result, err := f.chat.SendMessage(ctx, user.ID, room.ID, "hi Luna")
	require.NoError(t, err)
	require.NotNil(t, result.UserMessage)
	require.NotNil(t, result.AIMessage)
	assert.Equal(t, "hi Luna", result.UserMessage.Content)
	assert.Equal(t, "Hello there!", result.AIMessage.Content)
	assert.True(t, result.AIMessage.IsAIMessage)
	assert.Nil(t, result.AIMessage.UserID)

	// one token spent, one audit row completed
	after, err := f.userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, after.TokenBalance)
	gens, err := f.genRepo.ListByUser(ctx, nil, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, types.GenerationStatusCompleted, gens[0].Status)

	// both sides of the exchange were published
	assert.Len(t, f.notifier.created, 2)
}

func TestSendMessageDuplicateWithinWindow(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, user.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)

	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "same text")
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "same text")
	assert.ErrorIs(t, err, ErrDuplicateMessage)

	// the duplicate must not be charged
	after, err := f.userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, after.TokenBalance)

	// different content goes straight through
	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "different text")
	assert.NoError(t, err)
}

func TestSendMessageInsufficientTokens(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, user.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&types.User{}).Where("id = ?", user.ID).Update("token_balance", 0).Error)

	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "hello?")
	assert.ErrorIs(t, err, ErrInsufficientTokens)
	assert.Zero(t, f.ai.calls)
}

func TestSendMessageAIFailureMarksGeneration(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, user.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)

	f.ai.replyErr = errors.New("upstream down")
	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "hi")
	require.Error(t, err)

	gens, err := f.genRepo.ListByUser(ctx, nil, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, types.GenerationStatusFailed, gens[0].Status)
}

func TestSendMessageStrangerRoom(t *testing.T) {
	f := newChatFixture(t)
	owner := seedUser(t, f.db, 100)
	stranger := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, owner.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, owner.ID, model.ID)
	require.NoError(t, err)

	_, err = f.chat.SendMessage(ctx, stranger.ID, room.ID, "let me in")
	assert.ErrorIs(t, err, ErrNotRoomMember)
}

func TestListMessagesRequiresMembership(t *testing.T) {
	f := newChatFixture(t)
	owner := seedUser(t, f.db, 100)
	stranger := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, owner.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, owner.ID, model.ID)
	require.NoError(t, err)

	_, err = f.chat.ListMessages(ctx, stranger.ID, room.ID, 50)
	assert.ErrorIs(t, err, ErrNotRoomMember)
}

func TestSendMessageDuplicateAfterWindow(t *testing.T) {
	f := newChatFixture(t)
	user := seedUser(t, f.db, 100)
	model := seedModel(t, f.db, user.ID, false)
	ctx := context.Background()

	room, err := f.chat.FindOrCreateRoom(ctx, user.ID, model.ID)
	require.NoError(t, err)

	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "same text")
	require.NoError(t, err)

	// age every message past the double-submit guard
	require.NoError(t, f.db.Model(&types.ChatMessage{}).
		Where("chat_room_id = ?", room.ID).
		Update("created_at", time.Now().Add(-6*time.Second)).Error)

	_, err = f.chat.SendMessage(ctx, user.ID, room.ID, "same text")
	assert.NoError(t, err)

	after, err := f.userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 98, after.TokenBalance)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes per rune

	for max := 0; max <= len(s); max++ {
		out := truncate(s, max)
		assert.True(t, utf8.ValidString(out), "max=%d", max)
		assert.LessOrEqual(t, len(out), max)
	}
	assert.Equal(t, s, truncate(s, len(s)+1))
}
