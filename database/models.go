package database

import "time"

type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleBuyer
}

type SubscriptionStatus string

const (
	StatusInactive       SubscriptionStatus = "inactive"
	StatusActive         SubscriptionStatus = "active"
	StatusAutoRenewalOff SubscriptionStatus = "auto_renewal_off"
	StatusCancelled      SubscriptionStatus = "cancelled"
	StatusExpired        SubscriptionStatus = "expired"
)

// Usable — подписка даёт доступ до конца оплаченного периода
func (s SubscriptionStatus) Usable() bool {
	return s == StatusActive || s == StatusAutoRenewalOff || s == StatusCancelled
}

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
	PlatformTelegram  Platform = "telegram"
	PlatformTikTok    Platform = "tiktok"
	PlatformVK        Platform = "vk"
)

var Platforms = []Platform{PlatformInstagram, PlatformYouTube, PlatformTelegram, PlatformTikTok, PlatformVK}

type Category string

const (
	CategoryLifestyle Category = "lifestyle"
	CategoryBeauty    Category = "beauty"
	CategoryFashion   Category = "fashion"
	CategoryFood      Category = "food"
	CategoryTravel    Category = "travel"
	CategoryTech      Category = "tech"
	CategoryFitness   Category = "fitness"
	CategoryKids      Category = "kids"
	CategoryBusiness  Category = "business"
	CategoryHumor     Category = "humor"
)

var Categories = []Category{
	CategoryLifestyle, CategoryBeauty, CategoryFashion, CategoryFood, CategoryTravel,
	CategoryTech, CategoryFitness, CategoryKids, CategoryBusiness, CategoryHumor,
}

type Gender string

const (
	GenderAny    Gender = "any"
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

type User struct {
	ID                    int64
	PlatformID            int64
	Username              *string
	FirstName             *string
	LastName              *string
	SubscriptionStatus    SubscriptionStatus
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	Rating                float64
	ReviewsCount          int
	IsVIP                 bool
	PenaltyAmount         int
	IsBlocked             bool
	CreatedAt             time.Time
}

// HasAccess — есть ли у пользователя оплаченный доступ на момент now
func (u *User) HasAccess(now time.Time) bool {
	if u.IsVIP {
		return true
	}
	return u.SubscriptionStatus.Usable() &&
		u.SubscriptionEndDate != nil &&
		u.SubscriptionEndDate.After(now)
}

func (u *User) DisplayName() string {
	switch {
	case u.Username != nil && *u.Username != "":
		return "@" + *u.Username
	case u.FirstName != nil && *u.FirstName != "":
		return *u.FirstName
	}
	return "id" + itoa(u.PlatformID)
}

type Blogger struct {
	ID               int64
	SellerID         int64
	Name             string   `validate:"required,max=128"`
	URL              string   `validate:"omitempty,url"`
	Platforms        []string `validate:"omitempty,max=5,dive,oneof=instagram youtube telegram tiktok vk"`
	Categories       []string `validate:"omitempty,max=3,dive,required"`
	Description      *string  `validate:"omitempty,max=2000"`
	SubscribersCount int      `validate:"gte=0"`

	// Аудитория, проценты
	Audience13_17  *int `validate:"omitempty,gte=0,lte=100"`
	Audience18_24  *int `validate:"omitempty,gte=0,lte=100"`
	Audience25_35  *int `validate:"omitempty,gte=0,lte=100"`
	Audience35Plus *int `validate:"omitempty,gte=0,lte=100"`
	FemalePercent  *int `validate:"omitempty,gte=0,lte=100"`
	MalePercent    *int `validate:"omitempty,gte=0,lte=100"`
	TopCountry     *string
	CountryPercent *int `validate:"omitempty,gte=0,lte=100"`

	// Цены
	PriceStories            *int `validate:"omitempty,gte=0"`
	PricePost               *int `validate:"omitempty,gte=0"`
	PriceVideo              *int `validate:"omitempty,gte=0"`
	PriceReels              *int `validate:"omitempty,gte=0"`
	PriceYouTubeIntegration *int `validate:"omitempty,gte=0"`
	PriceTelegramPost       *int `validate:"omitempty,gte=0"`

	// Охваты
	StoriesReachMin *int `validate:"omitempty,gte=0"`
	StoriesReachMax *int `validate:"omitempty,gte=0"`
	PostReachMin    *int `validate:"omitempty,gte=0"`
	PostReachMax    *int `validate:"omitempty,gte=0"`
	VideoReachMin   *int `validate:"omitempty,gte=0"`
	VideoReachMax   *int `validate:"omitempty,gte=0"`
	ReelsReachMin   *int `validate:"omitempty,gte=0"`
	ReelsReachMax   *int `validate:"omitempty,gte=0"`

	HasReviews              bool
	IsRegisteredRKN         bool
	OfficialPaymentPossible bool
	EvidenceImages          []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchFilter — история поисковых запросов покупателя
type SearchFilter struct {
	ID         int64
	UserID     int64
	Platforms  []string
	Categories []string
	AgeMin     *int
	AgeMax     *int
	Gender     Gender
	BudgetMin  *int
	BudgetMax  *int
	HasReviews *bool
	CreatedAt  time.Time
}

type Subscription struct {
	ID          int64
	UserID      int64
	StartDate   time.Time
	EndDate     time.Time
	Amount      int
	Status      SubscriptionStatus
	PaymentID   *string
	AutoRenewal bool
	CancelledAt *time.Time
	CreatedAt   time.Time
}

type Review struct {
	ID         int64
	BloggerID  int64
	ReviewerID int64
	Rating     int     `validate:"gte=1,lte=5"`
	Comment    *string `validate:"omitempty,max=1000"`
	CreatedAt  time.Time
}

type Contact struct {
	ID        int64
	BuyerID   int64
	SellerID  int64
	BloggerID *int64
	CreatedAt time.Time
}

type ComplaintStatus string

const (
	ComplaintNew      ComplaintStatus = "new"
	ComplaintPenalty  ComplaintStatus = "penalty_applied"
	ComplaintRejected ComplaintStatus = "rejected"
)

type Complaint struct {
	ID            int64
	BloggerID     *int64
	UserID        int64
	Reason        string `validate:"required,max=1000"`
	Status        ComplaintStatus
	PenaltyAmount int
	CreatedAt     time.Time
}

// BloggerWithOwner — строка результата поиска
type BloggerWithOwner struct {
	Blogger Blogger
	Owner   User
}
