package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

// Counter transactions contend on one document per user.
const usageTxAttempts = 25

// usageDoc is the quota part of users/{uid}. The same document also holds the
// profile fields written by the user repository.
type usageDoc struct {
	DailyUsage    int64     `firestore:"dailyUsage"`
	IsPremium     bool      `firestore:"isPremium"`
	LastResetDate string    `firestore:"lastResetDate"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type firestoreUsageRepository struct {
	client *firestore.Client
	opts   usageOptions
}

func NewFirestoreUsageRepository(client *firestore.Client, opts ...UsageOption) UsageRepository {
	return &firestoreUsageRepository{
		client: client,
		opts:   newUsageOptions(opts),
	}
}

func (r *firestoreUsageRepository) userDoc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

func (r *firestoreUsageRepository) GetUsage(ctx context.Context, userID string) (*models.UsageRecord, error) {
	snap, err := r.userDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, errors.Unavailable(err, "failed to get usage")
	}

	var doc usageDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode usage")
	}
	return doc.toModel(userID), nil
}

// IncrementUsage runs in a transaction so a document first created by the
// profile or tier writers gets its lastResetDate on the first counted message.
func (r *firestoreUsageRepository) IncrementUsage(ctx context.Context, userID string) error {
	ref := r.userDoc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if snap == nil || !snap.Exists() {
			return tx.Create(ref, r.newUsageDoc(1))
		}
		return tx.Update(ref, r.incrementUpdates(snap))
	}, firestore.MaxAttempts(usageTxAttempts))
	if err != nil {
		return errors.Unavailable(err, "failed to increment usage")
	}
	return nil
}

func (r *firestoreUsageRepository) IncrementUsageIfBelow(ctx context.Context, userID string, limit int64) (bool, error) {
	ref := r.userDoc(userID)
	var incremented bool

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		incremented = false

		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if snap == nil || !snap.Exists() {
			if limit <= 0 {
				return nil
			}
			incremented = true
			return tx.Create(ref, r.newUsageDoc(1))
		}

		var doc usageDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.DailyUsage >= limit {
			return nil
		}
		incremented = true
		return tx.Update(ref, r.incrementUpdates(snap))
	}, firestore.MaxAttempts(usageTxAttempts))
	if err != nil {
		return false, errors.Unavailable(err, "failed to reserve usage")
	}
	return incremented, nil
}

func (r *firestoreUsageRepository) newUsageDoc(dailyUsage int64) usageDoc {
	now := r.opts.clock()
	return usageDoc{
		DailyUsage:    dailyUsage,
		LastResetDate: models.UsageDay(now),
		UpdatedAt:     now,
	}
}

// incrementUpdates adds one to the counter and stamps today's date on
// documents that never carried one.
func (r *firestoreUsageRepository) incrementUpdates(snap *firestore.DocumentSnapshot) []firestore.Update {
	updates := []firestore.Update{
		{Path: "dailyUsage", Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if !hasResetDate(snap) {
		updates = append(updates, firestore.Update{Path: "lastResetDate", Value: r.opts.today()})
	}
	return updates
}

func hasResetDate(snap *firestore.DocumentSnapshot) bool {
	v, err := snap.DataAt("lastResetDate")
	if err != nil {
		return false
	}
	day, ok := v.(string)
	return ok && day != ""
}

func (r *firestoreUsageRepository) DecrementUsage(ctx context.Context, userID string) error {
	ref := r.userDoc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var doc usageDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.DailyUsage <= 0 {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "dailyUsage", Value: firestore.Increment(-1)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return errors.Unavailable(err, "failed to refund usage")
	}
	return nil
}

// ResetAllUsage streams every user document and zeroes the ones whose
// lastResetDate is not today through a BulkWriter, flushing every batchSize
// writes. Documents missing the field count as not yet reset.
func (r *firestoreUsageRepository) ResetAllUsage(ctx context.Context) (int, error) {
	today := r.opts.today()

	iter := r.client.Collection(usersCollection).Select("lastResetDate").Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var (
		jobs  []*firestore.BulkWriterJob
		count int
	)

	collect := func() error {
		bw.Flush()
		for _, job := range jobs {
			if _, err := job.Results(); err != nil {
				return err
			}
			count++
		}
		jobs = jobs[:0]
		return nil
	}

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return count, errors.Unavailable(err, "failed to list usage")
		}

		var doc usageDoc
		if err := snap.DataTo(&doc); err != nil {
			bw.End()
			return count, errors.Wrap(err, "failed to decode usage")
		}
		if doc.LastResetDate == today {
			continue
		}

		job, err := bw.Update(snap.Ref, []firestore.Update{
			{Path: "dailyUsage", Value: 0},
			{Path: "lastResetDate", Value: today},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
		if err != nil {
			bw.End()
			return count, errors.Unavailable(err, "failed to queue usage reset")
		}
		jobs = append(jobs, job)

		if len(jobs) >= r.opts.batchSize {
			if err := collect(); err != nil {
				bw.End()
				return count, errors.Unavailable(err, "failed to reset usage")
			}
		}
	}

	err := collect()
	bw.End()
	if err != nil {
		return count, errors.Unavailable(err, "failed to reset usage")
	}
	return count, nil
}

func (r *firestoreUsageRepository) SetPremium(ctx context.Context, userID string, isPremium bool) error {
	ref := r.userDoc(userID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		fields := map[string]interface{}{
			"isPremium": isPremium,
			"updatedAt": firestore.ServerTimestamp,
		}
		if snap == nil || !snap.Exists() {
			fields["dailyUsage"] = 0
			fields["lastResetDate"] = r.opts.today()
		} else if !hasResetDate(snap) {
			fields["lastResetDate"] = r.opts.today()
		}
		return tx.Set(ref, fields, firestore.MergeAll)
	})
	if err != nil {
		return errors.Unavailable(err, "failed to set tier")
	}
	return nil
}

func (d usageDoc) toModel(userID string) *models.UsageRecord {
	return &models.UsageRecord{
		UserID:        userID,
		IsPremium:     d.IsPremium,
		DailyUsage:    d.DailyUsage,
		LastResetDate: d.LastResetDate,
		UpdatedAt:     d.UpdatedAt,
	}
}
