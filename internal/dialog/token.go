// ABOUTME: Encoding and parsing of button tokens
// ABOUTME: Choice tokens carry a generation, watch tokens carry the full query

package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/2389/rail-scout/internal/subscription"
)

// Token prefixes. Telegram limits callback data to 64 bytes; every token
// here stays well below that for real station codes and train numbers.
const (
	prefixPoint   = "pt"
	prefixTrain   = "tr"
	prefixWatch   = "watch"
	prefixSub     = "sub"
	tokenNoWatch  = "nowatch"
	watchDay      = "d"
	watchTrain    = "t"
	subDelete     = "del"
	subCheck      = "chk"
	fieldSep      = "_"
	maxTokenBytes = 64
)

func choiceToken(prefix string, gen uint64, idx int) string {
	return fmt.Sprintf("%s:%d:%d", prefix, gen, idx)
}

// parseChoice splits "pt:<gen>:<idx>".
func parseChoice(token string) (prefix string, gen uint64, idx int, ok bool) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", 0, 0, false
	}
	gen, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	idx, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, false
	}
	return parts[0], gen, idx, true
}

func watchDayToken(origin, destination, date string) string {
	return prefixWatch + ":" + watchDay + ":" + strings.Join([]string{origin, destination, date}, fieldSep)
}

func watchTrainToken(origin, destination, date, tm, number string) string {
	return prefixWatch + ":" + watchTrain + ":" + strings.Join([]string{origin, destination, date, tm, number}, fieldSep)
}

// parseWatch turns a watch token back into an unsaved subscription.
func parseWatch(token string) (subscription.Subscription, bool) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != prefixWatch {
		return subscription.Subscription{}, false
	}
	fields := strings.Split(parts[2], fieldSep)

	switch {
	case parts[1] == watchDay && len(fields) == 3:
		return subscription.Subscription{
			Kind:            subscription.KindDay,
			OriginCode:      fields[0],
			DestinationCode: fields[1],
			Date:            fields[2],
		}, true
	case parts[1] == watchTrain && len(fields) == 5:
		return subscription.Subscription{
			Kind:            subscription.KindTrain,
			OriginCode:      fields[0],
			DestinationCode: fields[1],
			Date:            fields[2],
			Time:            fields[3],
			TrainNumber:     fields[4],
		}, true
	}
	return subscription.Subscription{}, false
}

func subToken(action, id string) string {
	return prefixSub + ":" + action + ":" + id
}

func parseSub(token string) (action, id string, ok bool) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != prefixSub || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// fits reports whether token can travel as callback data.
func fits(token string) bool {
	return len(token) <= maxTokenBytes
}
