package domain

// MoodInstruction is sent with every snapshot.
const MoodInstruction = "Analyze the facial expression and environment in this image to determine the user's mood. " +
	"Based on this, suggest a perfectly curated music playlist of 15 to 20 songs that match the mood. " +
	"The playlist MUST include a diverse mix of languages including Marathi, Hindi, English, and other relevant regional languages that fit the vibe. " +
	"Scores (confidence and every vibe metric) are numbers from 0 to 100. " +
	"Return the result in strict JSON."
