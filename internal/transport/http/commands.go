package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trivia-duel/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	errInvalidPayload = errors.New("invalid payload")
	errUnknownCommand = errors.New("unsupported message type")
)

type teamPayload struct {
	ID      string   `json:"id" validate:"required"`
	Name    string   `json:"name" validate:"required,max=64"`
	Members []string `json:"members" validate:"dive,required"`
	Icon    string   `json:"icon"`
}

type setTeamsPayload struct {
	Teams []teamPayload `json:"teams" validate:"required,min=2,dive"`
}

type categoryPayload struct {
	CategoryID string `json:"categoryId" validate:"required"`
}

type questionPayload struct {
	QuestionID string `json:"questionId" validate:"required"`
}

type teamIDPayload struct {
	TeamID string `json:"teamId" validate:"required"`
}

type wagerPayload struct {
	TeamID       string  `json:"teamId" validate:"required"`
	TargetTeamID string  `json:"targetTeamId" validate:"required,nefield=TeamID"`
	Multiplier   float64 `json:"multiplier"`
}

type couponPayload struct {
	Code string `json:"code" validate:"required,max=64"`
}

type purchasePayload struct {
	PackageID string `json:"packageId" validate:"required"`
}

type addTokensPayload struct {
	Amount int `json:"amount" validate:"required,gt=0"`
}

type couponResult struct {
	Applied bool `json:"applied"`
}

type toggleResult struct {
	CategoryID string `json:"categoryId"`
	Accepted   bool   `json:"accepted"`
}

func (h *WSHandler) dispatch(ctx context.Context, in inboundMessage) (outboundMessage[any], error) {
	switch in.Type {
	case "setTeams":
		p, err := decode[setTeamsPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		teams := make([]domain.Team, 0, len(p.Teams))
		for _, t := range p.Teams {
			teams = append(teams, domain.Team{ID: t.ID, Name: t.Name, Members: t.Members, Icon: t.Icon})
		}
		return h.stateOrError(h.game.SetTeams(ctx, teams))

	case "toggleCategory":
		p, err := decode[categoryPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		accepted, err := h.game.ToggleCategory(ctx, p.CategoryID)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return outboundMessage[any]{Type: "categoryToggled", Payload: toggleResult{CategoryID: p.CategoryID, Accepted: accepted}}, nil

	case "startGame":
		return h.stateOrError(h.game.StartGame(ctx))
	case "startNewGame":
		return h.stateOrError(h.game.StartNewGame(ctx))
	case "resetGame":
		return h.stateOrError(h.game.ResetGame(ctx))
	case "completeGame":
		return h.stateOrError(h.game.CompleteGame(ctx))

	case "randomQuestion":
		q, ok, err := h.game.RandomUnansweredQuestion(ctx)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		if !ok {
			return outboundMessage[any]{}, errors.New("no unanswered questions left")
		}
		return h.stateOrError(h.game.SetCurrentQuestion(ctx, &q))

	case "selectQuestion":
		p, err := decode[questionPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return h.stateOrError(h.game.SelectQuestion(ctx, p.QuestionID))

	case "award":
		p, err := decode[teamIDPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		res, err := h.game.AwardPoints(ctx, p.TeamID)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return outboundMessage[any]{Type: "resolution", Payload: res}, nil

	case "deny":
		res, err := h.game.DenyPoints(ctx)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return outboundMessage[any]{Type: "resolution", Payload: res}, nil

	case "placeWager":
		p, err := decode[wagerPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		if p.Multiplier == 0 {
			draw, err := h.game.DrawWager(ctx, p.TeamID, p.TargetTeamID)
			if err != nil {
				return outboundMessage[any]{}, err
			}
			return outboundMessage[any]{Type: "wager", Payload: draw}, nil
		}
		return h.stateOrError(h.game.PlaceWager(ctx, p.TeamID, p.TargetTeamID, domain.Multiplier(p.Multiplier)))

	case "applyCoupon":
		p, err := decode[couponPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		applied, err := h.game.ApplyCoupon(ctx, strings.TrimSpace(p.Code))
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return outboundMessage[any]{Type: "coupon", Payload: couponResult{Applied: applied}}, nil

	case "purchase":
		p, err := decode[purchasePayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return h.stateOrError(h.economy.Purchase(ctx, p.PackageID))
	case "addTokens":
		p, err := decode[addTokensPayload](in.Payload)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return h.stateOrError(h.economy.AddTokens(ctx, p.Amount))
	case "toggleDarkMode":
		return h.stateOrError(h.economy.ToggleDarkMode(ctx))

	case "board":
		board, err := h.game.Board(ctx)
		if err != nil {
			return outboundMessage[any]{}, err
		}
		return outboundMessage[any]{Type: "board", Payload: board}, nil
	case "standings":
		return outboundMessage[any]{Type: "standings", Payload: h.game.Standings()}, nil
	}
	return outboundMessage[any]{}, fmt.Errorf("%w: %q", errUnknownCommand, in.Type)
}
