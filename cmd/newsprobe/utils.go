package main

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func upDown(b bool) string {
	if b {
		return "Up"
	}
	return "Down"
}
