package domain

import "time"

type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusArchived  ContentStatus = "archived"
)

type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
	LevelExpert       CourseLevel = "expert"
)

// Course is the root of the shared catalog: Course -> Module -> Lesson/Quiz -> Question.
type Course struct {
	ID                  string        `json:"id"`
	Code                string        `json:"code" validate:"required"`
	Name                string        `json:"name" validate:"required"`
	ShortDescription    string        `json:"short_description"`
	FullDescription     string        `json:"full_description"`
	ThumbnailURL        *string       `json:"thumbnail_url"`
	Category            string        `json:"category"`
	Vendor              string        `json:"vendor"`
	EstimatedHours      float64       `json:"estimated_hours" validate:"gte=0"`
	TotalLessons        int           `json:"total_lessons" validate:"gte=0"`
	TotalModules        int           `json:"total_modules" validate:"gte=0"`
	Level               CourseLevel   `json:"level" validate:"oneof=beginner intermediate advanced expert"`
	Prerequisites       []string      `json:"prerequisites"`
	CertificationName   string        `json:"certification_name"`
	CertificationVendor string        `json:"certification_vendor"`
	ExamCode            *string       `json:"exam_code"`
	Price               *float64      `json:"price"`
	Currency            string        `json:"currency"`
	Status              ContentStatus `json:"status" validate:"oneof=draft published archived"`
	PublishedAt         *time.Time    `json:"published_at"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

type CourseUpdate struct {
	Code                *string        `json:"code,omitempty" validate:"omitnil,min=1"`
	Name                *string        `json:"name,omitempty" validate:"omitnil,min=1"`
	ShortDescription    *string        `json:"short_description,omitempty"`
	FullDescription     *string        `json:"full_description,omitempty"`
	ThumbnailURL        *string        `json:"thumbnail_url,omitempty"`
	Category            *string        `json:"category,omitempty"`
	Vendor              *string        `json:"vendor,omitempty"`
	EstimatedHours      *float64       `json:"estimated_hours,omitempty" validate:"omitnil,gte=0"`
	TotalLessons        *int           `json:"total_lessons,omitempty" validate:"omitnil,gte=0"`
	TotalModules        *int           `json:"total_modules,omitempty" validate:"omitnil,gte=0"`
	Level               *CourseLevel   `json:"level,omitempty" validate:"omitnil,oneof=beginner intermediate advanced expert"`
	Prerequisites       []string       `json:"prerequisites,omitempty"`
	CertificationName   *string        `json:"certification_name,omitempty"`
	CertificationVendor *string        `json:"certification_vendor,omitempty"`
	ExamCode            *string        `json:"exam_code,omitempty"`
	Price               *float64       `json:"price,omitempty"`
	Currency            *string        `json:"currency,omitempty"`
	Status              *ContentStatus `json:"status,omitempty" validate:"omitnil,oneof=draft published archived"`
	PublishedAt         *time.Time     `json:"published_at,omitempty"`
	UpdatedAt           *time.Time     `json:"updated_at,omitempty"`
}

type Module struct {
	ID               string        `json:"id"`
	CourseID         string        `json:"course_id"`
	Number           int           `json:"number"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	EstimatedMinutes int           `json:"estimated_minutes"`
	SortOrder        int           `json:"sort_order"`
	Status           ContentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type LessonContentType string

const (
	LessonVideo       LessonContentType = "video"
	LessonArticle     LessonContentType = "article"
	LessonInteractive LessonContentType = "interactive"
	LessonLab         LessonContentType = "lab"
)

type Lesson struct {
	ID             string            `json:"id"`
	ModuleID       string            `json:"module_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	ContentType    LessonContentType `json:"content_type"`
	VideoURL       *string           `json:"video_url"`
	VideoProvider  *string           `json:"video_provider"`
	VideoDuration  *int              `json:"video_duration"`
	ArticleContent *string           `json:"article_content"`
	Resources      []Document        `json:"resources"`
	SortOrder      int               `json:"sort_order"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type Quiz struct {
	ID                 string    `json:"id"`
	ModuleID           string    `json:"module_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	TimeLimitMinutes   *int      `json:"time_limit_minutes"`
	PassingScore       int       `json:"passing_score"`
	MaxAttempts        *int      `json:"max_attempts"`
	ShuffleQuestions   bool      `json:"shuffle_questions"`
	ShowCorrectAnswers bool      `json:"show_correct_answers"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillBlank      QuestionType = "fill_blank"
)

type Question struct {
	ID             string       `json:"id"`
	QuizID         string       `json:"quiz_id"`
	QuestionText   string       `json:"question_text"`
	QuestionType   QuestionType `json:"question_type"`
	Options        []Document   `json:"options"`
	CorrectAnswers []string     `json:"correct_answers"`
	Explanation    *string      `json:"explanation"`
	Points         int          `json:"points"`
	SortOrder      int          `json:"sort_order"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
