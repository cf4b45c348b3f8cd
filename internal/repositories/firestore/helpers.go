package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	pfirestore "github.com/baovptse192440/NongSanProject-sub002/internal/platform/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/pagination"
)

// Money is persisted as a Firestore double; values are two-decimal prices.
func moneyToStore(value decimal.Decimal) float64 {
	return value.Round(2).InexactFloat64()
}

func moneyFromStore(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}

func moneyPtrToStore(value *decimal.Decimal) *float64 {
	if value == nil {
		return nil
	}
	out := moneyToStore(*value)
	return &out
}

func moneyPtrFromStore(value *float64) *decimal.Decimal {
	if value == nil {
		return nil
	}
	out := moneyFromStore(*value)
	return &out
}

func chooseTime(primary, fallback time.Time) time.Time {
	if !primary.IsZero() {
		return primary.UTC()
	}
	return fallback.UTC()
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	out := value.UTC()
	return &out
}

// listPage runs a newest-first query keyed on (timeField, document id) and
// returns one page plus the token for the next one.
func listPage[D any, T any](
	ctx context.Context,
	base *pfirestore.BaseRepository[D],
	pager domain.Pagination,
	timeField string,
	filter pfirestore.QueryBuilder,
	timeOf func(D) time.Time,
	decode func(pfirestore.Document[D]) T,
) (domain.CursorPage[T], error) {
	limit := pager.PageSize
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		at, id, err := pagination.DecodeTimeCursor(token)
		if err != nil {
			return domain.CursorPage[T]{}, fmt.Errorf("invalid page token: %w", err)
		}
		startAfter = []any{at, id}
	}

	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter != nil {
			q = filter(q)
		}
		q = q.OrderBy(timeField, firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[T]{}, err
	}

	next := ""
	if len(docs) > limit {
		docs = docs[:limit]
		last := docs[len(docs)-1]
		next = pagination.EncodeTimeCursor(chooseTime(timeOf(last.Data), last.CreateTime), last.ID)
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decode(doc))
	}
	return domain.CursorPage[T]{Items: items, NextPageToken: next}, nil
}
