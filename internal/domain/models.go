package domain

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status - статус заявки на модерацию.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal сообщает, что из статуса больше нет переходов.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid проверяет, что статус известен системе.
func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Action - что именно предлагает заявка.
type Action string

const (
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAdd, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// Category - категория площадок.
type Category struct {
	ID        string `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Slug      string `json:"slug" gorm:"type:varchar(120);not null;uniqueIndex"`
	ViewCount int    `json:"viewCount" gorm:"not null;default:0"`
}

// Place - опубликованная площадка.
type Place struct {
	ID          string         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string         `json:"name" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	OwnerID     string         `json:"ownerId" gorm:"type:varchar(255);not null;index"`
	Latitude    *float64       `json:"latitude,omitempty" gorm:"type:decimal(9,6)"`
	Longitude   *float64       `json:"longitude,omitempty" gorm:"type:decimal(9,6)"`
	CategoryID  *string        `json:"categoryId,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"not null;default:now()"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Category *Category  `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"` // gorm only
	Photos   []*Photo   `json:"-" gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`     // gorm only
	Comments []*Comment `json:"-" gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`     // gorm only
	Ratings  []*Rating  `json:"-" gorm:"foreignKey:PlaceID;constraint:OnDelete:CASCADE"`     // gorm only
}

// PendingSubmission - заявка пользователя на добавление, изменение или удаление площадки.
type PendingSubmission struct {
	ID              string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name            string    `json:"name" gorm:"type:varchar(200);not null"`
	Description     string    `json:"description" gorm:"type:text;not null"`
	Latitude        *float64  `json:"latitude,omitempty" gorm:"type:decimal(9,6)"`
	Longitude       *float64  `json:"longitude,omitempty" gorm:"type:decimal(9,6)"`
	SubmitterID     string    `json:"submitterId" gorm:"type:varchar(255);not null"`
	OriginalPlaceID *string   `json:"originalPlaceId,omitempty" gorm:"type:uuid;index"`
	Status          Status    `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	Action          Action    `json:"action" gorm:"type:varchar(20);not null;index"`
	CategoryID      *string   `json:"categoryId,omitempty" gorm:"type:uuid"`
	CreatedAt       time.Time `json:"createdAt" gorm:"not null;default:now();index"`

	// ProposedCategory - имя новой категории, созданной пользователем в форме.
	// Сама категория появляется только при одобрении заявки.
	ProposedCategory string `json:"proposedCategory,omitempty" gorm:"type:varchar(100)"`

	OriginalPlace *Place    `json:"-" gorm:"foreignKey:OriginalPlaceID;constraint:OnDelete:CASCADE"` // gorm only
	Category      *Category `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`     // gorm only
	Photos        []*Photo  `json:"-" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`    // gorm only
}

// CheckTarget проверяет связь действия и исходной площадки:
// add - без исходной площадки, edit и delete - только с ней.
func (s *PendingSubmission) CheckTarget() error {
	if !s.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, s.Action)
	}
	hasOriginal := s.OriginalPlaceID != nil && *s.OriginalPlaceID != ""
	if s.Action == ActionAdd && hasOriginal {
		return fmt.Errorf("%w: add submission must not reference a place", ErrValidation)
	}
	if s.Action != ActionAdd && !hasOriginal {
		return fmt.Errorf("%w: %s submission requires an original place", ErrValidation, s.Action)
	}
	return nil
}

// Photo принадлежит либо заявке, либо площадке. Ровно одно из полей заполнено.
type Photo struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ImageRef     string    `json:"imageRef" gorm:"type:varchar(500);not null"`
	SubmissionID *string   `json:"submissionId,omitempty" gorm:"type:uuid;index;check:(submission_id IS NULL) <> (place_id IS NULL)"`
	PlaceID      *string   `json:"placeId,omitempty" gorm:"type:uuid;index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Comment - комментарий к площадке. После создания не меняется.
type Comment struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlaceID   string    `json:"placeId" gorm:"type:uuid;not null;index"`
	AuthorID  string    `json:"authorId" gorm:"type:varchar(255);not null"`
	Text      string    `json:"text" gorm:"type:varchar(2000);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Rating - оценка площадки. Один пользователь - одна оценка на площадку.
type Rating struct {
	ID       string `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlaceID  string `json:"placeId" gorm:"type:uuid;not null;uniqueIndex:idx_rating_place_author"`
	AuthorID string `json:"authorId" gorm:"type:varchar(255);not null;uniqueIndex:idx_rating_place_author"`
	Value    int    `json:"value" gorm:"not null;check:value >= 1 AND value <= 5"`
}

const (
	MinRating = 1
	MaxRating = 5
)
