package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// NavRegistry keeps one Navigator per admin session. Navigators are
// not safe for concurrent use, so every handler runs under the
// registry lock.
type NavRegistry struct {
	mu    sync.Mutex
	store *Store
	navs  map[string]*Navigator
}

func NewNavRegistry(store *Store) *NavRegistry {
	return &NavRegistry{store: store, navs: map[string]*Navigator{}}
}

func (r *NavRegistry) with(c *gin.Context, fn func(n *Navigator)) {
	token := c.GetString("sessionToken")
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.navs[token]
	if !ok {
		n = NewNavigator(r.store)
		r.navs[token] = n
	}
	fn(n)
}

type NavState struct {
	Level             string       `json:"level"`
	GradeID           uint         `json:"gradeId,omitempty"`
	SemesterID        string       `json:"semesterId,omitempty"`
	SubjectID         string       `json:"subjectId,omitempty"`
	LessonID          string       `json:"lessonId,omitempty"`
	EditMode          bool         `json:"editMode"`
	EditingQuestionID string       `json:"editingQuestionId,omitempty"`
	Form              QuestionForm `json:"form"`
	Items             any          `json:"items"`
}

func navState(n *Navigator) NavState {
	return NavState{
		Level:             n.level.String(),
		GradeID:           n.gradeID,
		SemesterID:        n.semesterID,
		SubjectID:         n.subjectID,
		LessonID:          n.lessonID,
		EditMode:          n.editMode,
		EditingQuestionID: n.editingQuestionID,
		Form:              n.question,
		Items:             n.Items(),
	}
}

// GET /api/v1/admin/nav
func AdminNavState(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg.with(c, func(n *Navigator) {
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

type NavSelectReq struct {
	ID string `json:"id"`
}

// POST /api/v1/admin/nav/select — descend one level into the card
// with the given id.
func AdminNavSelect(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavSelectReq
		if err := c.BindJSON(&req); err != nil || req.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
			return
		}
		reg.with(c, func(n *Navigator) {
			switch n.level {
			case LevelGrades:
				if gid, ok := parseGradeID(req.ID); ok {
					n.SelectGrade(gid)
				}
			case LevelSemesters:
				n.SelectSemester(req.ID)
			case LevelSubjects:
				n.SelectSubject(req.ID)
			case LevelLessons:
				n.SelectLesson(req.ID)
			}
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

// POST /api/v1/admin/nav/back
func AdminNavBack(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg.with(c, func(n *Navigator) {
			n.Back()
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

// POST /api/v1/admin/nav/users — user management, from grades only.
func AdminNavUsers(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg.with(c, func(n *Navigator) {
			n.OpenUsers()
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

// POST /api/v1/admin/nav/form — open a blank add form.
func AdminNavOpenForm(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg.with(c, func(n *Navigator) {
			n.OpenForm()
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

type NavEditReq struct {
	QuestionID string `json:"questionId"`
}

// POST /api/v1/admin/nav/form/edit — load a question into the form.
func AdminNavEditQuestion(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavEditReq
		if err := c.BindJSON(&req); err != nil || req.QuestionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "questionId required"})
			return
		}
		reg.with(c, func(n *Navigator) {
			n.EditQuestion(req.QuestionID)
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

// POST /api/v1/admin/nav/form/close
func AdminNavCloseForm(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg.with(c, func(n *Navigator) {
			n.CloseForm()
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

type NavSubmitReq struct {
	Name     string        `json:"name"`
	Question *QuestionForm `json:"question"`
}

// POST /api/v1/admin/nav/submit — create-or-update depending on
// whether a question is being edited, then clear the form.
func AdminNavSubmit(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavSubmitReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		reg.with(c, func(n *Navigator) {
			if req.Name != "" {
				n.SetItemName(req.Name)
			}
			if req.Question != nil {
				n.SetQuestionForm(*req.Question)
			}
			if err := n.Submit(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

// POST /api/v1/admin/nav/toggle {id}
func AdminNavToggle(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavSelectReq
		if err := c.BindJSON(&req); err != nil || req.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
			return
		}
		reg.with(c, func(n *Navigator) {
			n.ToggleEnabled(req.ID)
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

// POST /api/v1/admin/nav/remove {id} — parent-scoped; not exposed for
// grades.
func AdminNavRemove(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavSelectReq
		if err := c.BindJSON(&req); err != nil || req.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
			return
		}
		reg.with(c, func(n *Navigator) {
			if err := n.Remove(req.ID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

type LessonURLReq struct {
	LessonID string `json:"lessonId"`
	URL      string `json:"url"`
}

// POST /api/v1/admin/nav/lesson-url
func AdminNavLessonURL(reg *NavRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LessonURLReq
		if err := c.BindJSON(&req); err != nil || req.LessonID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lessonId required"})
			return
		}
		reg.with(c, func(n *Navigator) {
			n.SetLessonURL(req.LessonID, req.URL)
			c.JSON(http.StatusOK, navState(n))
		})
	}
}

type RoleReq struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// POST /api/v1/admin/users/role — write the new role, then answer with
// a re-fetched user list. No optimistic state.
func AdminUpdateUserRole(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RoleReq
		if err := c.BindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		if req.Role != RoleUser && req.Role != RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be user or admin"})
			return
		}
		store.UpdateProfileRole(req.UserID, req.Role)
		profiles, err := store.Profiles()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": profiles})
	}
}
