package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davazquez/commonroom-backend/api/middleware"
	"github.com/davazquez/commonroom-backend/internal/votes"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/davazquez/commonroom-backend/pkg/logger"
	"github.com/davazquez/commonroom-backend/pkg/types"
)

type stubVoteService struct {
	lastDirection enums.VoteDirection
	lastTarget    uuid.UUID
	casts         int
	retracts      int
}

func (s *stubVoteService) Cast(_ context.Context, _ uuid.UUID, _ enums.VoteTargetType, targetID uuid.UUID, direction enums.VoteDirection) (votes.TotalsDTO, error) {
	s.casts++
	s.lastTarget = targetID
	s.lastDirection = direction
	return votes.TotalsDTO{UpvoteCount: 1, Score: 1}, nil
}

func (s *stubVoteService) Retract(_ context.Context, _ uuid.UUID, _ enums.VoteTargetType, targetID uuid.UUID) (votes.TotalsDTO, error) {
	s.retracts++
	s.lastTarget = targetID
	return votes.TotalsDTO{}, nil
}

func voteTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCastVoteDispatches(t *testing.T) {
	svc := &stubVoteService{}
	handler := CastVote(svc, voteTestLogger())

	targetID := uuid.New()
	body := `{"targetType":"post","targetId":"` + targetID.String() + `","direction":"downvote"}`
	req := httptest.NewRequest(http.MethodPost, "/votes", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.casts != 1 || svc.lastTarget != targetID || svc.lastDirection != enums.VoteDirectionDown {
		t.Fatalf("unexpected service call: %+v", svc)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCastVoteRejectsUnknownDirection(t *testing.T) {
	svc := &stubVoteService{}
	handler := CastVote(svc, voteTestLogger())

	body := `{"targetType":"post","targetId":"` + uuid.NewString() + `","direction":"sideways"}`
	req := httptest.NewRequest(http.MethodPost, "/votes", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.casts != 0 {
		t.Fatalf("service should not have been reached")
	}
}

func TestRetractVoteReadsURLParams(t *testing.T) {
	svc := &stubVoteService{}

	r := chi.NewRouter()
	r.Delete("/votes/{targetType}/{targetId}", RetractVote(svc, voteTestLogger()))

	targetID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/votes/comment/"+targetID.String(), nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.retracts != 1 || svc.lastTarget != targetID {
		t.Fatalf("unexpected service call: %+v", svc)
	}
}

func TestRetractVoteRejectsBadTargetType(t *testing.T) {
	svc := &stubVoteService{}

	r := chi.NewRouter()
	r.Delete("/votes/{targetType}/{targetId}", RetractVote(svc, voteTestLogger()))

	req := httptest.NewRequest(http.MethodDelete, "/votes/story/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.retracts != 0 {
		t.Fatalf("service should not have been reached")
	}
}
