package model

// Document paths inside the store.

func AdminPath(adminID string) string {
	return "admin/" + adminID
}

func FormsPath(adminID string) string {
	return AdminPath(adminID) + "/forms"
}

func FormPath(adminID, formID string) string {
	return FormsPath(adminID) + "/" + formID
}

func SessionsPath(adminID, formID string) string {
	return FormPath(adminID, formID) + "/sessions"
}

func SessionPath(adminID, formID, sessionID string) string {
	return SessionsPath(adminID, formID) + "/" + sessionID
}

func ShortPath(link string) string {
	return "shorts/" + link
}

func TokenPath(refreshTokenID string) string {
	return "tokens/" + refreshTokenID
}
