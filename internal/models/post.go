package models

import (
	"strings"
	"time"
)

// Category groups posts by community section.
type Category string

const (
	CategoryWellness Category = "WELLNESS"
	CategoryFitness  Category = "FITNESS"
	CategoryToddler  Category = "TODDLER"
)

// ParseCategory normalizes s; ok is false for anything outside the known sections.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryWellness, CategoryFitness, CategoryToddler:
		return c, true
	}
	return "", false
}

// PostStatus is the publication state of a post.
// DELETED is accepted on input but deleting a post removes the row.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusDeleted   PostStatus = "DELETED"
)

// ParsePostStatus normalizes s; ok is false for unknown states.
func ParsePostStatus(s string) (PostStatus, bool) {
	st := PostStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case PostStatusDraft, PostStatusPublished, PostStatusDeleted:
		return st, true
	}
	return "", false
}

// Post represents a post in the NutriScan community.
// Author fields are a snapshot taken when the post is written, not a live join.
type Post struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AuthorID     string     `gorm:"size:64;not null;index" json:"author_id"`
	AuthorName   string     `json:"author_name"`
	AuthorAvatar string     `json:"author_avatar"`
	Title        string     `gorm:"not null" json:"title"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	Images       []string   `gorm:"serializer:json;type:text" json:"images"`
	Tags         []string   `gorm:"serializer:json;type:text" json:"tags"`
	Category     Category   `gorm:"size:16;index" json:"category"`
	Status       PostStatus `gorm:"size:16;index" json:"status"`
	// LikeCount and FavoriteCount are not persisted; they are the size of the loaded sets
	LikeCount        int       `gorm:"-" json:"like_count"`
	FavoriteCount    int       `gorm:"-" json:"favorite_count"`
	LikedUserIDs     []string  `gorm:"-" json:"liked_user_ids"`
	FavoritedUserIDs []string  `gorm:"-" json:"favorited_user_ids"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SetEngagement installs the engagement sets and derives both counters from them.
func (p *Post) SetEngagement(liked, favorited []string) {
	p.LikedUserIDs = nonNil(liked)
	p.FavoritedUserIDs = nonNil(favorited)
	p.LikeCount = len(p.LikedUserIDs)
	p.FavoriteCount = len(p.FavoritedUserIDs)
}

// PostLike is one member of a post's like set.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:64;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostFavorite is one member of a post's favorite set.
type PostFavorite struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:64;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewRecord tracks the last time a user opened a post. One row per (user, post).
type ViewRecord struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   string    `gorm:"size:64;not null;uniqueIndex:idx_view_user_post" json:"user_id"`
	PostID   uint      `gorm:"not null;uniqueIndex:idx_view_user_post" json:"post_id"`
	ViewedAt time.Time `gorm:"not null;index" json:"viewed_at"`
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
