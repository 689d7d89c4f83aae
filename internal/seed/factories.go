// Package seed provides helpers to create demo data for the community
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math"
	"time"

	"nutriscan/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	categories = []models.Category{models.CategoryWellness, models.CategoryFitness, models.CategoryToddler}

	foods = []string{
		"overnight oats", "quinoa salad", "grilled salmon", "lentil soup", "greek yogurt bowl",
		"chicken stir fry", "sweet potato mash", "tofu scramble", "avocado toast", "banana pancakes",
		"steamed broccoli", "brown rice porridge", "berry smoothie", "egg custard", "pumpkin puree",
	}

	tagPool = []string{
		"low-carb", "high-protein", "meal-prep", "vegetarian", "breakfast", "snack",
		"post-workout", "baby-food", "weight-loss", "quick", "budget", "family",
	}
)

// Factory builds community entities with realistic random content.
// It never touches the database; the Seeder persists what it builds.
type Factory struct {
	faker   *gofakeit.Faker
	maxDays int
	now     func() time.Time
	nextSeq int
}

// NewFactory returns a Factory. A zero seed picks a time-based one.
func NewFactory(opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	maxDays := opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{faker: gofakeit.New(seed), maxDays: maxDays, now: time.Now}
}

// BuildUser returns an unsaved user with a unique phone number and a plausible body profile.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.nextSeq++
	gender := f.faker.Number(models.GenderMale, models.GenderFemale)
	height := round1(f.faker.Float64Range(150, 190))
	weight := round1(f.faker.Float64Range(45, 95))
	target := round1(weight - f.faker.Float64Range(0, 10))
	birth := f.faker.DateRange(f.now().AddDate(-60, 0, 0), f.now().AddDate(-18, 0, 0))
	birth = time.Date(birth.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC)

	user := &models.User{
		Nickname:      f.faker.FirstName(),
		AvatarURL:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Gender:        &gender,
		BirthDate:     &birth,
		Height:        &height,
		Weight:        &weight,
		TargetWeight:  &target,
		GroupCategory: string(f.category()),
	}

	if f.faker.Number(0, 3) == 0 {
		openID := "wx-" + f.faker.UUID()
		user.WechatOpenID = &openID
		user.LoginType = models.LoginTypeWechat
	} else {
		phone := fmt.Sprintf("138%08d", f.nextSeq)
		user.PhoneNumber = &phone
		user.LoginType = models.LoginTypePhone
	}

	for _, override := range overrides {
		override(user)
	}
	user.ApplyRegistrationDefaults()
	user.RecomputeMetrics(f.now())
	return user
}

// BuildPost returns an unsaved, published post by author with a created_at spread over MaxDays.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	food := f.faker.RandomString(foods)
	post := &models.Post{
		AuthorID:     author.UID,
		AuthorName:   author.Nickname,
		AuthorAvatar: author.AvatarURL,
		Title:        fmt.Sprintf("My %s %s", f.faker.Adjective(), food),
		Content:      f.faker.Paragraph(1, 3, 12, "\n"),
		Images:       f.images(),
		Tags:         f.tags(),
		Category:     f.category(),
		Status:       models.PostStatusPublished,
		CreatedAt:    f.pastTime(),
	}
	if f.faker.Number(0, 9) == 0 {
		post.Status = models.PostStatusDraft
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// BuildComment returns an unsaved comment on post; parent may be nil.
func (f *Factory) BuildComment(post *models.Post, author *models.User, parent *models.Comment) *models.Comment {
	comment := &models.Comment{
		PostID:       post.ID,
		AuthorID:     author.UID,
		AuthorName:   author.Nickname,
		AuthorAvatar: author.AvatarURL,
		Content:      f.faker.Sentence(f.faker.Number(4, 14)),
	}
	if parent != nil {
		id := parent.ID
		comment.ParentID = &id
		comment.ReplyToUserName = parent.AuthorName
	}
	return comment
}

func (f *Factory) category() models.Category {
	return categories[f.faker.Number(0, len(categories)-1)]
}

func (f *Factory) images() []string {
	n := f.faker.Number(0, 3)
	images := make([]string, 0, n)
	for i := 0; i < n; i++ {
		images = append(images, fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()))
	}
	return images
}

func (f *Factory) tags() []string {
	n := f.faker.Number(0, 3)
	seen := make(map[string]struct{}, n)
	tags := make([]string, 0, n)
	for len(tags) < n {
		tag := f.faker.RandomString(tagPool)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-back)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
