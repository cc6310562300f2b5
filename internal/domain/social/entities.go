package social

import (
	"time"

	"pomegranate/internal/core/id"
	"pomegranate/internal/domain/crud"
)

// Deps are the collaborators the entity hooks use. Views, Images and Geo are
// optional.
type Deps struct {
	Store  Store
	Views  Views
	Images ImageUploader
	Geo    GeoResolver
	Now    func() time.Time
}

// Entities returns the admin entity catalogue in menu order.
func Entities(d Deps) []crud.EntityConfig {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}

	return []crud.EntityConfig{
		users(d),
		posts(d),
		comments(d),
		tags(),
		likes(d),
		collections(d),
		follows(d),
		notifications(d),
		sessions(d),
		admins(),
		surveyQuestions(),
	}
}

func users(d Deps) crud.EntityConfig {
	return crud.EntityConfig{
		Name:  "users",
		Table: "users",
		Columns: []string{
			"password", "user_id", "nickname", "avatar", "bio", "location",
			"follow_count", "fans_count", "like_count", "is_active", "is_verified",
			"gender", "zodiac_sign", "mbti", "education", "major", "interests",
			"last_login_at", "created_at", "updated_at",
		},
		HiddenFields:   []string{"password"},
		RequiredFields: []string{"user_id", "nickname"},
		UpdateFields: []string{
			"user_id", "nickname", "avatar", "bio", "location", "is_active", "is_verified",
			"gender", "zodiac_sign", "mbti", "education", "major", "interests",
		},
		CreateFields: []string{"password"},
		UniqueFields: []string{"user_id"},
		SearchFields: map[string]crud.SearchField{
			"user_id":     crud.Fuzzy(),
			"nickname":    crud.Fuzzy(),
			"location":    crud.Fuzzy(),
			"is_active":   crud.EqInt(),
			"is_verified": crud.EqInt(),
		},
		SortFields:     []string{"id", "fans_count", "like_count", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Cascades: []crud.CascadeRule{
			{Table: "posts", Column: "user_id"},
			{Table: "comments", Column: "user_id"},
			{Table: "likes", Column: "user_id"},
			{Table: "collections", Column: "user_id"},
			{Table: "follows", Column: "follower_id"},
			{Table: "follows", Column: "following_id"},
			{Table: "notifications", Column: "user_id"},
			{Table: "notifications", Column: "sender_id"},
			{Table: "user_sessions", Column: "user_id"},
			{Table: "survey_responses", Column: "user_id"},
		},
		Hooks: &userHooks{geo: d.Geo},
	}
}

func posts(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:  "posts",
		Table: "posts",
		Columns: []string{
			"user_id", "title", "content", "category", "view_count", "like_count",
			"collect_count", "comment_count", "is_draft", "created_at",
		},
		RequiredFields: []string{"user_id", "title", "content"},
		UpdateFields:   []string{"title", "content", "category", "view_count", "is_draft"},
		SearchFields: map[string]crud.SearchField{
			"title":    crud.Fuzzy(),
			"user_id":  crud.EqInt(),
			"category": crud.Eq(),
			"is_draft": crud.EqInt(),
		},
		SortFields:     []string{"id", "view_count", "like_count", "collect_count", "comment_count", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Cascades: []crud.CascadeRule{
			{Table: "post_images", Column: "post_id"},
			{Table: "post_tags", Column: "post_id"},
			{Table: "comments", Column: "post_id"},
			{Table: "likes", Column: "target_id", Condition: map[string]any{"target_type": TargetPost}},
			{Table: "collections", Column: "post_id"},
		},
		Hooks: &postHooks{store: d.Store, images: d.Images},
	}
	if d.Views != nil {
		cfg.Queries = crud.CustomQueries{GetOne: d.Views.Post, GetList: d.Views.Posts}
	}
	return cfg
}

func comments(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:           "comments",
		Table:          "comments",
		Columns:        []string{"post_id", "user_id", "parent_id", "content", "like_count", "created_at"},
		RequiredFields: []string{"user_id", "post_id", "content"},
		UpdateFields:   []string{"content"},
		CreateFields:   []string{"parent_id"},
		SearchFields: map[string]crud.SearchField{
			"post_id": crud.EqInt(),
			"user_id": crud.EqInt(),
			"content": crud.Fuzzy(),
		},
		SortFields:     []string{"id", "like_count", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Cascades: []crud.CascadeRule{
			{Table: "likes", Column: "target_id", Condition: map[string]any{"target_type": TargetComment}},
			{Table: "comments", Column: "parent_id"},
		},
		Hooks: &commentHooks{store: d.Store},
	}
	if d.Views != nil {
		cfg.Queries.GetList = d.Views.Comments
	}
	return cfg
}

func tags() crud.EntityConfig {
	return crud.EntityConfig{
		Name:           "tags",
		Table:          "tags",
		Columns:        []string{"name", "description", "use_count", "created_at"},
		RequiredFields: []string{"name"},
		UpdateFields:   []string{"name", "description"},
		UniqueFields:   []string{"name"},
		SearchFields:   map[string]crud.SearchField{"name": crud.Fuzzy()},
		SortFields:     []string{"id", "use_count", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Cascades:       []crud.CascadeRule{{Table: "post_tags", Column: "tag_id"}},
	}
}

func likes(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:           "likes",
		Table:          "likes",
		Columns:        []string{"user_id", "target_type", "target_id", "created_at"},
		RequiredFields: []string{"user_id", "target_type", "target_id"},
		UpdateFields:   []string{"target_type", "target_id"},
		SearchFields: map[string]crud.SearchField{
			"user_id":     crud.EqInt(),
			"target_type": crud.EqInt(),
			"target_id":   crud.EqInt(),
		},
		SortFields:     []string{"id", "user_id", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Hooks:          &likeHooks{store: d.Store},
	}
	if d.Views != nil {
		cfg.Queries.GetList = d.Views.Likes
	}
	return cfg
}

func collections(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:           "collections",
		Table:          "collections",
		Columns:        []string{"user_id", "post_id", "created_at"},
		RequiredFields: []string{"user_id", "post_id"},
		UpdateFields:   []string{"post_id"},
		SearchFields: map[string]crud.SearchField{
			"user_id": crud.EqInt(),
			"post_id": crud.EqInt(),
		},
		SortFields:     []string{"id", "user_id", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Hooks:          &collectionHooks{store: d.Store},
	}
	if d.Views != nil {
		cfg.Queries.GetList = d.Views.Collections
	}
	return cfg
}

func follows(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:           "follows",
		Table:          "follows",
		Columns:        []string{"follower_id", "following_id", "created_at"},
		RequiredFields: []string{"follower_id", "following_id"},
		UpdateFields:   []string{"following_id"},
		SearchFields: map[string]crud.SearchField{
			"follower_id":  crud.EqInt(),
			"following_id": crud.EqInt(),
		},
		SortFields:     []string{"id", "follower_id", "following_id", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Hooks:          &followHooks{store: d.Store},
	}
	if d.Views != nil {
		cfg.Queries.GetList = d.Views.Follows
	}
	return cfg
}

func notifications(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:  "notifications",
		Table: "notifications",
		Columns: []string{
			"user_id", "sender_id", "type", "title", "target_id", "comment_id", "is_read", "created_at",
		},
		RequiredFields: []string{"user_id", "sender_id", "type", "title"},
		UpdateFields:   []string{"user_id", "sender_id", "type", "title", "target_id", "comment_id", "is_read"},
		SearchFields: map[string]crud.SearchField{
			"user_id": crud.EqInt(),
			"type":    crud.EqInt(),
			"is_read": crud.EqInt(),
		},
		SortFields:     []string{"id", "created_at"},
		DefaultOrderBy: "created_at DESC",
	}
	if d.Views != nil {
		cfg.Queries.GetList = d.Views.Notifications
	}
	return cfg
}

func sessions(d Deps) crud.EntityConfig {
	cfg := crud.EntityConfig{
		Name:  "sessions",
		Table: "user_sessions",
		Columns: []string{
			"user_id", "token", "refresh_token", "expires_at", "user_agent",
			"is_active", "created_at", "updated_at",
		},
		RequiredFields: []string{"user_id"},
		UpdateFields:   []string{"user_agent", "is_active"},
		CreateFields:   []string{"token", "refresh_token", "expires_at"},
		SearchFields: map[string]crud.SearchField{
			"user_id":   crud.EqInt(),
			"is_active": crud.EqInt(),
		},
		SortFields:     []string{"id", "is_active", "expires_at", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Hooks:          &sessionHooks{store: d.Store, now: d.Now},
	}
	if d.Views != nil {
		cfg.Queries.GetList = d.Views.Sessions
	}
	return cfg
}

func admins() crud.EntityConfig {
	return crud.EntityConfig{
		Name:           "admins",
		Table:          "admin",
		PrimaryKey:     "username",
		KeyKind:        id.String,
		Columns:        []string{"username", "password", "created_at"},
		HiddenFields:   []string{"password"},
		RequiredFields: []string{"username", "password"},
		UpdateFields:   []string{"password"},
		UniqueFields:   []string{"username"},
		SearchFields:   map[string]crud.SearchField{"username": crud.Fuzzy()},
		SortFields:     []string{"username", "created_at"},
		DefaultOrderBy: "created_at DESC",
		Hooks:          adminHooks{},
	}
}

func surveyQuestions() crud.EntityConfig {
	return crud.EntityConfig{
		Name:           "survey_questions",
		Route:          "survey-questions",
		Table:          "survey_questions",
		Columns:        []string{"question_text", "question_type", "options", "sort_order", "is_required", "created_at"},
		RequiredFields: []string{"question_text", "question_type", "options", "sort_order"},
		UpdateFields:   []string{"question_text", "question_type", "options", "sort_order", "is_required"},
		SearchFields: map[string]crud.SearchField{
			"question_text": crud.Fuzzy(),
			"question_type": crud.Eq(),
			"is_required":   crud.EqInt(),
		},
		SortFields:     []string{"id", "sort_order", "created_at"},
		DefaultOrderBy: "sort_order ASC",
		Hooks:          surveyHooks{},
		Access:         crud.Authenticated,
	}
}
