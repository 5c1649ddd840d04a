// ABOUTME: Standing subscriptions: creating, listing, deleting and checking them
// ABOUTME: Runs outside the search state machine and never changes the chat state

package dialog

import (
	"context"
	"time"

	apperrors "github.com/2389/rail-scout/internal/errors"
	"github.com/2389/rail-scout/internal/rzd"
	"github.com/2389/rail-scout/internal/subscription"
)

// Tasks lists the chat's subscriptions, one reply per subscription.
func (c *Coordinator) Tasks(ctx context.Context, chatID int64) []Reply {
	all, err := c.store.List(ctx)
	if err != nil {
		c.logger.Error("listing subscriptions", "chat_id", chatID, "error", err)
		return []Reply{{Text: msgCheckFailed(err)}}
	}

	subs := subscription.ForChat(all, chatID)
	if len(subs) == 0 {
		return []Reply{{Text: msgNoTasks}}
	}

	replies := make([]Reply, 0, len(subs))
	for _, sub := range subs {
		replies = append(replies, Reply{
			Text: renderTask(sub),
			Buttons: []Button{
				{Label: btnCheckTask, Token: subToken(subCheck, sub.ID)},
				{Label: btnDeleteTask, Token: subToken(subDelete, sub.ID)},
			},
		})
	}
	return replies
}

// watch records the day or train encoded in token.
func (c *Coordinator) watch(ctx context.Context, chatID int64, token string) []Reply {
	sub, ok := parseWatch(token)
	if !ok {
		c.logger.Warn("malformed watch token", "chat_id", chatID, "token", token)
		return []Reply{{Text: msgUnknownButton}}
	}
	sub.ChatID = chatID
	c.fillNames(chatID, &sub)

	id, err := c.store.Put(ctx, "", sub)
	if err != nil {
		c.logger.Error("creating subscription", "chat_id", chatID, "error", err)
		return []Reply{{Text: msgTaskCreateFailed(err)}}
	}
	c.logger.Info("subscription created", "chat_id", chatID, "id", id, "kind", sub.Kind)
	return []Reply{{Text: msgTaskCreated(id)}}
}

// fillNames copies display names from the chat's current or last route
// when the codes match.
func (c *Coordinator) fillNames(chatID int64, sub *subscription.Subscription) {
	var route [2]rzd.PointCode
	if st, ok := c.State(chatID).(AwaitingTrainChoice); ok {
		route = [2]rzd.PointCode{st.Origin, st.Destination}
	} else {
		route = c.session(chatID).lastRoute()
	}
	if route[0].Code == sub.OriginCode && route[1].Code == sub.DestinationCode {
		sub.OriginName = route[0].Name
		sub.DestinationName = route[1].Name
	}
}

func (c *Coordinator) subscriptionAction(ctx context.Context, chatID int64, token string) []Reply {
	action, id, ok := parseSub(token)
	if !ok {
		return []Reply{{Text: msgUnknownButton}}
	}

	sub, err := c.store.Get(ctx, id)
	if err != nil || sub.ChatID != chatID {
		if err != nil && !apperrors.Is(err, apperrors.KindNotFound) {
			c.logger.Error("loading subscription", "chat_id", chatID, "id", id, "error", err)
		}
		return []Reply{{Text: msgTaskUnavailable}}
	}

	switch action {
	case subDelete:
		if _, err := c.store.Delete(ctx, id); err != nil {
			return []Reply{{Text: msgTaskDeleteFailed(err)}}
		}
		c.logger.Info("subscription deleted", "chat_id", chatID, "id", id)
		return []Reply{{Text: msgTaskDeleted(id)}}
	case subCheck:
		return c.check(ctx, sub)
	}
	return []Reply{{Text: msgUnknownButton}}
}

// check re-runs the query a subscription stands for. The chat's search
// state is left alone.
func (c *Coordinator) check(ctx context.Context, sub subscription.Subscription) []Reply {
	header := sub.Label() + "\n"

	if sub.Kind == subscription.KindTrain {
		cars, err := c.upstream.Carriages(ctx, rzd.TrainRef{
			Origin:      sub.OriginCode,
			Destination: sub.DestinationCode,
			Date:        sub.Date,
			Time:        sub.Time,
			Number:      sub.TrainNumber,
		}, c.retryBudget)
		if err != nil {
			return []Reply{{Text: header + msgCheckFailed(err)}}
		}
		return []Reply{{Text: header + renderBlocks(c.reducer.ReduceAll(cars))}}
	}

	date, err := time.Parse(rzd.DateLayout, sub.Date)
	if err != nil {
		return []Reply{{Text: header + msgCheckFailed(err)}}
	}
	listings, err := c.upstream.Schedule(ctx, sub.OriginCode, sub.DestinationCode, date, c.retryBudget)
	if err != nil {
		return []Reply{{Text: header + msgCheckFailed(err)}}
	}
	trains := c.filterTrains(listings)
	if len(trains) == 0 {
		return []Reply{{Text: header + msgNoTrains}}
	}
	return []Reply{{Text: header + renderTrainSummary(trains)}}
}
