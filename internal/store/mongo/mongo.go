// Package mongo implements store.Store on MongoDB. Documents reuse the bson
// tags of the model types and keep string ids in _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medwise-api/internal/model"
	"medwise-api/internal/store"
)

type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	appointments *mongo.Collection
	tokens       *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// New connects to uri, selects database and ensures indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client:       client,
		users:        db.Collection("users"),
		appointments: db.Collection("appointments"),
		tokens:       db.Collection("refresh_tokens"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: users indexes: %w", err)
	}
	_, err = s.appointments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo: appointments indexes: %w", err)
	}
	_, err = s.tokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: refresh_tokens indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// mongo keeps millisecond precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) UsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.users.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := []model.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	if _, err := s.appointments.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	var a model.Appointment
	if err := s.appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]model.Appointment, error) {
	filter := bson.M{}
	if f.DoctorID != "" {
		filter["doctorId"] = f.DoctorID
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.appointments.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out := []model.Appointment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return out, nil
}

// patchDoc turns a patch into a $set document.
func patchDoc(p model.AppointmentPatch) bson.M {
	set := bson.M{"updatedAt": now()}
	if p.PatientName != nil {
		set["patientName"] = *p.PatientName
	}
	if p.PatientAge != nil {
		set["patientAge"] = *p.PatientAge
	}
	if p.PatientGender != nil {
		set["patientGender"] = *p.PatientGender
	}
	if p.ReasonForVisit != nil {
		set["reasonForVisit"] = *p.ReasonForVisit
	}
	if p.DoctorID != nil {
		set["doctorId"] = *p.DoctorID
	}
	if p.DoctorName != nil {
		set["doctorName"] = *p.DoctorName
	}
	if p.Date != nil {
		set["date"] = *p.Date
	}
	if p.Type != nil {
		set["type"] = *p.Type
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}
	return bson.M{"$set": set}
}

func (s *Store) UpdateAppointment(ctx context.Context, id string, p model.AppointmentPatch) error {
	res, err := s.appointments.UpdateOne(ctx, bson.M{"_id": id}, patchDoc(p))
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	res, err := s.appointments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	rt := model.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: now(),
	}
	if _, err := s.tokens.InsertOne(ctx, rt); err != nil {
		return "", fmt.Errorf("insert refresh token: %w", err)
	}
	return rt.ID, nil
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := s.tokens.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&rt); err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

// RotateRefreshToken runs without a transaction so it works on a standalone
// server. The conditional update still lets only one caller win.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	res, err := s.tokens.UpdateOne(ctx,
		bson.M{"_id": oldID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "replacedBy": newID}},
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	_, err = s.tokens.InsertOne(ctx, model.RefreshToken{
		ID:        newID,
		UserID:    userID,
		TokenHash: newHash,
		ExpiresAt: newExpiry,
		CreatedAt: now(),
	})
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.tokens.UpdateMany(ctx,
		bson.M{"userId": userID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	return err
}
