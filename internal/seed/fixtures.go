package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"nutriscan/internal/models"

	"gopkg.in/yaml.v3"
)

// Fixtures is a hand-written data set, typically loaded from a YAML file.
// Posts and comments refer to users by Key so files stay readable.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
	Posts []PostFixture `yaml:"posts"`
}

type UserFixture struct {
	Key          string   `yaml:"key"`
	Nickname     string   `yaml:"nickname"`
	Phone        string   `yaml:"phone"`
	WechatOpenID string   `yaml:"wechat_open_id"`
	Gender       *int     `yaml:"gender"`
	BirthDate    string   `yaml:"birth_date"`
	Height       *float64 `yaml:"height"`
	Weight       *float64 `yaml:"weight"`
}

type PostFixture struct {
	Author   string           `yaml:"author"`
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Category string           `yaml:"category"`
	Status   string           `yaml:"status"`
	Tags     []string         `yaml:"tags"`
	Images   []string         `yaml:"images"`
	LikedBy  []string         `yaml:"liked_by"`
	Comments []CommentFixture `yaml:"comments"`
}

type CommentFixture struct {
	Author  string           `yaml:"author"`
	Content string           `yaml:"content"`
	Replies []CommentFixture `yaml:"replies"`
}

// LoadFixtures decodes a fixture document, rejecting unknown fields.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var fx Fixtures
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	return &fx, nil
}

// LoadFixturesFile reads fixtures from path.
func LoadFixturesFile(path string) (*Fixtures, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

// ApplyFixtures writes fx in document order and returns what was created.
func (s *Seeder) ApplyFixtures(ctx context.Context, fx *Fixtures) (*Summary, error) {
	sum := &Summary{}
	byKey := make(map[string]*models.User, len(fx.Users))

	for _, uf := range fx.Users {
		if uf.Key == "" {
			return sum, fmt.Errorf("user fixture %q has no key", uf.Nickname)
		}
		if _, dup := byKey[uf.Key]; dup {
			return sum, fmt.Errorf("duplicate user key %q", uf.Key)
		}
		u, err := uf.toUser()
		if err != nil {
			return sum, err
		}
		u.RecomputeMetrics(time.Now())
		if err := s.users.Create(ctx, u); err != nil {
			return sum, fmt.Errorf("failed to create user %q: %w", uf.Key, err)
		}
		byKey[uf.Key] = u
		sum.Users++
	}

	lookup := func(key string) (*models.User, error) {
		u, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("unknown user key %q", key)
		}
		return u, nil
	}

	for _, pf := range fx.Posts {
		author, err := lookup(pf.Author)
		if err != nil {
			return sum, err
		}
		category, ok := models.ParseCategory(pf.Category)
		if !ok {
			return sum, fmt.Errorf("post %q: invalid category %q", pf.Title, pf.Category)
		}
		status := models.PostStatusPublished
		if pf.Status != "" {
			if status, ok = models.ParsePostStatus(pf.Status); !ok {
				return sum, fmt.Errorf("post %q: invalid status %q", pf.Title, pf.Status)
			}
		}

		post := s.factory.BuildPost(author, func(p *models.Post) {
			p.Title = pf.Title
			p.Content = pf.Content
			p.Category = category
			p.Status = status
			p.Tags = append([]string{}, pf.Tags...)
			p.Images = append([]string{}, pf.Images...)
			p.CreatedAt = time.Time{}
		})
		if err := s.posts.Create(ctx, post); err != nil {
			return sum, fmt.Errorf("failed to create post %q: %w", pf.Title, err)
		}
		sum.Posts++

		for _, key := range pf.LikedBy {
			u, err := lookup(key)
			if err != nil {
				return sum, err
			}
			if _, err := s.posts.ToggleLike(ctx, post.ID, u.UID); err != nil {
				return sum, err
			}
			sum.Likes++
		}

		n, err := s.applyComments(ctx, post, nil, pf.Comments, lookup)
		sum.Comments += n
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (s *Seeder) applyComments(ctx context.Context, post *models.Post, parent *models.Comment, fixtures []CommentFixture, lookup func(string) (*models.User, error)) (int, error) {
	created := 0
	for _, cf := range fixtures {
		author, err := lookup(cf.Author)
		if err != nil {
			return created, err
		}
		c := s.factory.BuildComment(post, author, parent)
		c.Content = cf.Content
		if err := s.comments.Create(ctx, c); err != nil {
			return created, fmt.Errorf("failed to create comment: %w", err)
		}
		created++
		n, err := s.applyComments(ctx, post, c, cf.Replies, lookup)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (uf UserFixture) toUser() (*models.User, error) {
	u := &models.User{
		Nickname: uf.Nickname,
		Gender:   uf.Gender,
		Height:   uf.Height,
		Weight:   uf.Weight,
	}
	if uf.Phone != "" {
		phone := uf.Phone
		u.PhoneNumber = &phone
	}
	if uf.WechatOpenID != "" {
		openID := uf.WechatOpenID
		u.WechatOpenID = &openID
	}
	if u.PhoneNumber == nil && u.WechatOpenID == nil {
		return nil, fmt.Errorf("user %q needs a phone or wechat_open_id", uf.Key)
	}
	if uf.BirthDate != "" {
		bd, err := time.Parse("2006-01-02", uf.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("user %q: invalid birth_date: %w", uf.Key, err)
		}
		u.BirthDate = &bd
	}
	u.ApplyRegistrationDefaults()
	return u, nil
}
