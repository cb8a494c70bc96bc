// Package pubsub — шина уведомлений об изменениях данных.
// Мутации публикуют топик затронутой выборки; живые публикации
// подписываются на свои топики и перезапускают запрос.
package pubsub

import (
	"context"
	"strings"
)

// Bus — шина уведомлений. Уведомление несёт только имя топика:
// получатель сам перечитывает данные, поэтому повторные уведомления
// для уже ожидающего получателя могут склеиваться.
type Bus interface {
	// Publish рассылает уведомление подписчикам топика.
	Publish(ctx context.Context, topic string) error
	// Subscribe возвращает канал топиков; канал закрывается после отмены ctx.
	Subscribe(ctx context.Context, topics ...string) (<-chan string, error)
	// Close освобождает ресурсы шины.
	Close() error
}

// Топики выборок.
const (
	TopicBlogs  = "blogs"
	TopicImages = "images"
)

// TopicPost — изменения одного поста.
func TopicPost(postID string) string { return "posts/" + postID }

// TopicPostComments — изменения комментариев поста.
func TopicPostComments(postID string) string { return "post_comments/" + postID }

// TopicProfile — изменения профиля пользователя.
func TopicProfile(userID string) string { return "profiles/" + userID }

// validTopic отсекает пустые и пробельные имена.
func validTopic(topic string) bool {
	return strings.TrimSpace(topic) != ""
}
