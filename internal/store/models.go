package store

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanMonthly    Plan = "MONTHLY"
	PlanQuarterly  Plan = "QUARTERLY"
	PlanSemesterly Plan = "SEMESTERLY"
	PlanYearly     Plan = "YEARLY"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionPending  SubscriptionStatus = "PENDING"
	SubscriptionOverdue  SubscriptionStatus = "OVERDUE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
)

// User is a student or admin account.
type User struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Role               Role               `json:"role"`
	Plan               Plan               `json:"plan"`
	XP                 int                `json:"xp"`
	Level              int                `json:"level"`
	Streak             int                `json:"streak"`
	Coins              int                `json:"coins"`
	DailyGoal          int                `json:"dailyGoal"`
	EnglishLevel       string             `json:"englishLevel"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	Banned             bool               `json:"isBanned"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// NewUser fills in the defaults a freshly registered student starts with.
func NewUser(name, email string) User {
	return User{
		ID:                 uuid.NewString(),
		Name:               name,
		Email:              email,
		Role:               RoleStudent,
		Plan:               PlanFree,
		Level:              1,
		DailyGoal:          120,
		EnglishLevel:       "B1",
		SubscriptionStatus: SubscriptionActive,
		CreatedAt:          time.Now().UTC(),
	}
}

// EditalStatus tracks an edital import. Imports start in processing and settle
// exactly once, in ready or error.
type EditalStatus string

const (
	EditalProcessing EditalStatus = "processing"
	EditalReady      EditalStatus = "ready"
	EditalError      EditalStatus = "error"
)

// CanTransition reports whether moving from s to next is allowed.
func (s EditalStatus) CanTransition(next EditalStatus) bool {
	return s == EditalProcessing && (next == EditalReady || next == EditalError)
}

// Edital is an imported exam notice turned into a study plan.
type Edital struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Institution string       `json:"institution"`
	Position    string       `json:"position"`
	ExamDate    *time.Time   `json:"examDate,omitempty"`
	Status      EditalStatus `json:"status"`
	Summary     string       `json:"summary,omitempty"`
	Tips        []string     `json:"strategicTips,omitempty"`
	Subjects    []Subject    `json:"subjects"`
	Failure     string       `json:"failure,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Subject is one discipline of an edital. Progress is a percentage in [0, 100].
type Subject struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Weight     int     `json:"weight"`
	Topics     []Topic `json:"topics"`
	Progress   float64 `json:"progress"`
	Color      string  `json:"color,omitempty"`
	Difficulty string  `json:"difficulty,omitempty"`
}

type Topic struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Studied     bool       `json:"studied"`
	ReviewCount int        `json:"reviewCount"`
	LastReview  *time.Time `json:"lastReview,omitempty"`
}

// Clone returns a deep copy.
func (e Edital) Clone() Edital {
	out := e
	if e.Tips != nil {
		out.Tips = append([]string(nil), e.Tips...)
	}
	if e.Subjects != nil {
		out.Subjects = make([]Subject, len(e.Subjects))
		for i, s := range e.Subjects {
			out.Subjects[i] = s
			if s.Topics != nil {
				out.Subjects[i].Topics = append([]Topic(nil), s.Topics...)
			}
		}
	}
	return out
}

// SimuladoResult is a finished mock exam.
type SimuladoResult struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Title          string    `json:"title"`
	TotalQuestions int       `json:"totalQuestions"`
	Score          int       `json:"score"`
	Type           string    `json:"type"`
	Date           time.Time `json:"date"`
}

// Features toggles whole product areas.
type Features struct {
	English bool `json:"english"`
	Duels   bool `json:"duels"`
	TutorIA bool `json:"tutorIA"`
	Store   bool `json:"store"`
}

// SystemConfig is the admin-editable application configuration.
type SystemConfig struct {
	AppName        string   `json:"appName"`
	WelcomeMessage string   `json:"welcomeMessage"`
	MonthlyPrice   float64  `json:"monthlyPrice"`
	Features       Features `json:"features"`
	PrimaryColor   string   `json:"primaryColor"`
}

// DefaultConfig is the configuration used until an admin saves one.
func DefaultConfig() SystemConfig {
	return SystemConfig{
		AppName:        "AprovaIA",
		WelcomeMessage: "Bem-vindo à Elite dos Concursos.",
		MonthlyPrice:   29.90,
		Features: Features{
			English: true,
			Duels:   true,
			TutorIA: true,
			Store:   true,
		},
		PrimaryColor: "#00FF88",
	}
}

// Counts aggregates row counts for the admin dashboard.
type Counts struct {
	Users               int `json:"totalUsers"`
	ActiveSubscriptions int `json:"activeSubscriptions"`
	BannedUsers         int `json:"bannedUsers"`
	Editais             int `json:"totalEditais"`
	Simulados           int `json:"totalSimulados"`
}
