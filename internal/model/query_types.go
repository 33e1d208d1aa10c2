package model

import "strings"

// QueryType is one entry of the fixed category set a query is filed under.
type QueryType struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var QueryTypes = []QueryType{
	{Value: "general", Label: "General"},
	{Value: "technical", Label: "Technical"},
	{Value: "account", Label: "Account"},
	{Value: "billing", Label: "Billing"},
	{Value: "feedback", Label: "Feedback"},
	{Value: "other", Label: "Other"},
}

func IsQueryType(value string) bool {
	for _, qt := range QueryTypes {
		if qt.Value == value {
			return true
		}
	}
	return false
}

// QueryTypeLabel returns the label for value, falling back to value itself
// for categories no longer in the set.
func QueryTypeLabel(value string) string {
	for _, qt := range QueryTypes {
		if strings.EqualFold(qt.Value, value) {
			return qt.Label
		}
	}
	return value
}
