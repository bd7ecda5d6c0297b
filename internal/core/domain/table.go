package domain

// Table names a relation in the hosted backend schema.
type Table string

const (
	TableCompanies            Table = "companies"
	TableUsers                Table = "users"
	TableCourses              Table = "courses"
	TableModules              Table = "modules"
	TableLessons              Table = "lessons"
	TableQuizzes              Table = "quizzes"
	TableQuestions            Table = "questions"
	TableEnrollments          Table = "enrollments"
	TableLessonProgress       Table = "lesson_progress"
	TableQuizAttempts         Table = "quiz_attempts"
	TableGamificationProfiles Table = "gamification_profiles"
	TableAchievements         Table = "achievements"
	TableUserAchievements     Table = "user_achievements"
	TableAuditLogs            Table = "audit_logs"
	TablePortalAccess         Table = "portal_access"
	TableMediaReferences      Table = "media_references"
	TableQuestionBank         Table = "question_bank"
	TableContentUploads       Table = "content_uploads"
	TableDeliveryManagers     Table = "delivery_managers"
	TableExternalResources    Table = "external_resources"
)

// Tables lists every relation of the backend contract.
var Tables = []Table{
	TableCompanies, TableUsers, TableCourses, TableModules, TableLessons,
	TableQuizzes, TableQuestions, TableEnrollments, TableLessonProgress,
	TableQuizAttempts, TableGamificationProfiles, TableAchievements,
	TableUserAchievements, TableAuditLogs, TablePortalAccess,
	TableMediaReferences, TableQuestionBank, TableContentUploads,
	TableDeliveryManagers, TableExternalResources,
}

// MirroredTables are the relations that have a slot in the local mirror.
var MirroredTables = []Table{
	TableCompanies, TableUsers, TableCourses, TableEnrollments, TablePortalAccess,
}

func (t Table) String() string { return string(t) }

// Valid reports whether t belongs to the backend contract.
func (t Table) Valid() bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}
