package models

import "time"

// Comment represents a comment on a post. ParentID points at the comment being
// replied to; a nil ParentID makes it a top-level comment.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	AuthorID        string    `gorm:"size:64;not null" json:"author_id"`
	AuthorName      string    `json:"author_name"`
	AuthorAvatar    string    `json:"author_avatar"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ParentID        *uint     `gorm:"index" json:"parent_id,omitempty"`
	ReplyToUserName string    `json:"reply_to_user_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	// LikeCount is not persisted; it is the size of LikedUserIDs
	LikeCount    int      `gorm:"-" json:"like_count"`
	LikedUserIDs []string `gorm:"-" json:"liked_user_ids"`
}

// SetLikes installs the like set and derives the counter from it.
func (c *Comment) SetLikes(liked []string) {
	c.LikedUserIDs = nonNil(liked)
	c.LikeCount = len(c.LikedUserIDs)
}

// CommentLike is one member of a comment's like set.
type CommentLike struct {
	CommentID uint      `gorm:"primaryKey;autoIncrement:false" json:"comment_id"`
	UserID    string    `gorm:"primaryKey;size:64;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplySubtree returns rootID followed by every comment that transitively replies
// to it, walking a parent->children index with an explicit stack. Comments whose
// parent chain loops back on itself are visited once.
func ReplySubtree(comments []*Comment, rootID uint) []uint {
	children := make(map[uint][]uint, len(comments))
	for _, c := range comments {
		if c.ParentID != nil && *c.ParentID != c.ID {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	seen := map[uint]struct{}{rootID: {}}
	ids := []uint{rootID}
	stack := []uint{rootID}
	for len(stack) > 0 {
		n := len(stack) - 1
		current := stack[n]
		stack = stack[:n]
		for _, child := range children[current] {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			ids = append(ids, child)
			stack = append(stack, child)
		}
	}
	return ids
}
