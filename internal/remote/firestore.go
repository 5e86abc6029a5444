package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"broadoak/internal/model"
)

// MaxBatchOps Firestore 单次事务/批量写入的操作上限
const MaxBatchOps = 500

var (
	// ErrShiftNotFound 更新的班次文档不存在
	ErrShiftNotFound = errors.New("shift document not found")
	// ErrBatchTooLarge 单批操作数超过上限
	ErrBatchTooLarge = errors.New("batch exceeds firestore operation limit")
)

// Config Firestore 连接配置
type Config struct {
	ProjectID        string
	CredentialsFile  string // 为空时使用 ADC（或 FIRESTORE_EMULATOR_HOST）
	UsersCollection  string
	ShiftsCollection string
}

// FirestoreStore 以 Firestore 为后端的用户目录与班次存储
type FirestoreStore struct {
	client *firestore.Client
	users  string
	shifts string
	logger *zap.Logger
}

type userDoc struct {
	Name string `firestore:"name"`
}

type shiftDoc struct {
	UserID    string    `firestore:"userId"`
	UserName  string    `firestore:"userName"`
	Date      time.Time `firestore:"date"`
	Address   string    `firestore:"address"`
	ShortCode string    `firestore:"shortCode"`
	Task      string    `firestore:"task"`
	Manager   string    `firestore:"manager"`
	Type      string    `firestore:"type"`
	Status    string    `firestore:"status"`
}

// New 连接 Firestore
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*FirestoreStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}

	users, shifts := cfg.UsersCollection, cfg.ShiftsCollection
	if users == "" {
		users = "users"
	}
	if shifts == "" {
		shifts = "shifts"
	}
	logger.Info("firestore store connected", zap.String("project", cfg.ProjectID))
	return &FirestoreStore{client: client, users: users, shifts: shifts, logger: logger}, nil
}

// Close 关闭客户端
func (f *FirestoreStore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// ListUsers 读取整个用户集合
func (f *FirestoreStore) ListUsers(ctx context.Context) ([]model.User, error) {
	iter := f.client.Collection(f.users).Documents(ctx)
	defer iter.Stop()

	var users []model.User
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		var u userDoc
		if err := doc.DataTo(&u); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
		}
		users = append(users, model.User{ID: doc.Ref.ID, Name: u.Name})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CreateUser 新建用户文档
func (f *FirestoreStore) CreateUser(ctx context.Context, name string) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, fmt.Errorf("user name is required")
	}
	u := model.User{ID: uuid.NewString(), Name: name}
	if _, err := f.client.Collection(f.users).Doc(u.ID).Create(ctx, userDoc{Name: name}); err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ListShiftsInRange 按日期范围（含两端）查询班次
func (f *FirestoreStore) ListShiftsInRange(ctx context.Context, from, to time.Time) ([]model.Shift, error) {
	iter := f.client.Collection(f.shifts).
		Where("date", ">=", from.UTC()).
		Where("date", "<=", to.UTC()).
		Documents(ctx)
	defer iter.Stop()

	var shifts []model.Shift
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list shifts: %w", err)
		}
		var d shiftDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode shift %s: %w", doc.Ref.ID, err)
		}
		shifts = append(shifts, d.toShift(doc.Ref.ID))
	}
	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].Date.Equal(shifts[j].Date) {
			return shifts[i].Date.Before(shifts[j].Date)
		}
		return shifts[i].ID < shifts[j].ID
	})
	return shifts, nil
}

// ApplyBatch 在一个事务中执行整批操作；任一失败则整批不生效
// 事务先读取全部更新/删除目标，已进入受保护状态的班次跳过不写
func (f *FirestoreStore) ApplyBatch(ctx context.Context, ops []model.ShiftOp, protected model.StatusSet) (model.BatchResult, error) {
	if len(ops) == 0 {
		return model.BatchResult{}, nil
	}
	if len(ops) > MaxBatchOps {
		return model.BatchResult{}, fmt.Errorf("%d ops: %w", len(ops), ErrBatchTooLarge)
	}

	// 事务可能重试，ID 在事务外分配
	prepared := make([]model.ShiftOp, len(ops))
	for i, op := range ops {
		if op.Kind == model.OpCreate {
			if op.Shift.ID == "" {
				op.Shift.ID = uuid.NewString()
			}
			if op.Shift.Status == "" {
				op.Shift.Status = model.StatusPendingConfirmation
			}
		}
		prepared[i] = op
	}

	col := f.client.Collection(f.shifts)
	var res model.BatchResult
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		res = model.BatchResult{Applied: make([]model.ShiftOp, 0, len(prepared))}

		var refs []*firestore.DocumentRef
		for _, op := range prepared {
			if op.Kind == model.OpUpdate || op.Kind == model.OpDelete {
				refs = append(refs, col.Doc(op.TargetID()))
			}
		}
		current := make(map[string]*firestore.DocumentSnapshot, len(refs))
		if len(refs) > 0 {
			snaps, err := tx.GetAll(refs)
			if err != nil {
				return fmt.Errorf("read batch targets: %w", err)
			}
			for _, snap := range snaps {
				current[snap.Ref.ID] = snap
			}
		}
		isProtected := func(id string) bool {
			snap, ok := current[id]
			if !ok || !snap.Exists() {
				return false
			}
			st, err := snap.DataAt("status")
			if err != nil {
				return false
			}
			v, _ := st.(string)
			return protected.Has(model.ShiftStatus(v))
		}

		for _, op := range prepared {
			switch op.Kind {
			case model.OpCreate:
				if err := tx.Create(col.Doc(op.Shift.ID), fromShift(op.Shift)); err != nil {
					return fmt.Errorf("create shift %s: %w", op.Shift.ID, err)
				}
			case model.OpUpdate:
				if op.Update == nil {
					return fmt.Errorf("update op without field changes")
				}
				if snap, ok := current[op.Update.ID]; !ok || !snap.Exists() {
					return fmt.Errorf("update shift %s: %w", op.Update.ID, ErrShiftNotFound)
				}
				if isProtected(op.Update.ID) {
					res.Skipped = append(res.Skipped, op)
					continue
				}
				if err := tx.Update(col.Doc(op.Update.ID), updates(op.Update)); err != nil {
					return fmt.Errorf("update shift %s: %w", op.Update.ID, err)
				}
			case model.OpDelete:
				if isProtected(op.Shift.ID) {
					res.Skipped = append(res.Skipped, op)
					continue
				}
				if err := tx.Delete(col.Doc(op.Shift.ID)); err != nil {
					return fmt.Errorf("delete shift %s: %w", op.Shift.ID, err)
				}
			default:
				return fmt.Errorf("unknown op kind %q", op.Kind)
			}
			res.Applied = append(res.Applied, op)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrShiftNotFound) || status.Code(err) == codes.NotFound {
			return model.BatchResult{}, fmt.Errorf("apply batch: %w", ErrShiftNotFound)
		}
		return model.BatchResult{}, fmt.Errorf("apply batch: %w", err)
	}

	f.logger.Debug("firestore batch applied", zap.Int("ops", len(res.Applied)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func updates(u *model.ShiftUpdate) []firestore.Update {
	var ups []firestore.Update
	if u.Manager != nil {
		ups = append(ups, firestore.Update{Path: "manager", Value: *u.Manager})
	}
	if u.ShortCode != nil {
		ups = append(ups, firestore.Update{Path: "shortCode", Value: *u.ShortCode})
	}
	if u.Type != nil {
		ups = append(ups, firestore.Update{Path: "type", Value: string(*u.Type)})
	}
	return ups
}

func fromShift(s model.Shift) shiftDoc {
	return shiftDoc{
		UserID:    s.UserID,
		UserName:  s.UserName,
		Date:      s.Date.UTC(),
		Address:   s.Address,
		ShortCode: s.ShortCode,
		Task:      s.Task,
		Manager:   s.Manager,
		Type:      string(s.Type),
		Status:    string(s.Status),
	}
}

func (d shiftDoc) toShift(id string) model.Shift {
	return model.Shift{
		ID:        id,
		UserID:    d.UserID,
		UserName:  d.UserName,
		Date:      model.CivilDate(d.Date.UTC()),
		Address:   d.Address,
		ShortCode: d.ShortCode,
		Task:      d.Task,
		Manager:   d.Manager,
		Type:      model.ShiftType(d.Type),
		Status:    model.ShiftStatus(d.Status),
	}
}
