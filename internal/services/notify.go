package services

import (
	"encoding/json"
	"fmt"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateNotification stores a notification row and pushes it to the
// user's device if FCM is configured.
func CreateNotification(db *gorm.DB, userID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	notif := models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
	}

	var pushData map[string]string
	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err == nil {
			s := string(data)
			notif.Metadata = &s
		}
		// Convert metadata to string map for push payload
		pushData = make(map[string]string)
		for k, v := range metadata {
			pushData[k] = fmt.Sprintf("%v", v)
		}
		pushData["type"] = notifType
	}

	db.Create(&notif)

	if Push != nil {
		go Push.SendToUser(userID, title, body, pushData)
	}
}

// NotifyGroupMembers sends a notification to all members of a group except the actor
func NotifyGroupMembers(db *gorm.DB, groupID, excludeUserID uuid.UUID, notifType, title, body string, metadata map[string]interface{}) {
	var members []models.GroupMember
	db.Where("group_id = ? AND user_id != ?", groupID, excludeUserID).Find(&members)

	for _, m := range members {
		CreateNotification(db, m.UserID, notifType, title, body, metadata)
	}
}

// LogActivity appends an entry to a group's activity feed.
func LogActivity(db *gorm.DB, groupID, userID uuid.UUID, actionType string, targetID *uuid.UUID, metadata map[string]interface{}) {
	entry := models.ActivityLog{
		GroupID:    groupID,
		UserID:     userID,
		ActionType: actionType,
		TargetID:   targetID,
	}

	if metadata != nil {
		data, err := json.Marshal(metadata)
		if err == nil {
			s := string(data)
			entry.Metadata = &s
		}
	}

	db.Create(&entry)
}
