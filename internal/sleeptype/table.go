package sleeptype

// DefaultTable is the scoring table of the fourteen-question sleep survey.
var DefaultTable = Table{
	Threshold: 0.5,
	Axes: []Axis{
		{
			Name:     "morning",
			Positive: "morning",
			Negative: "night",
			Rules: []SlotRule{
				{Slot: 3, Cmp: AtMost, Option: 1},  // energy peak
				{Slot: 4, Cmp: AtMost, Option: 1},  // weekday wake-up
				{Slot: 8, Cmp: AtMost, Option: 1},  // bedtime
				{Slot: 9, Cmp: AtMost, Option: 1},  // wake-up time
				{Slot: 10, Cmp: AtMost, Option: 1}, // weekend wake-up
			},
		},
		{
			Name:     "control",
			Positive: "controlled",
			Negative: "free",
			Rules: []SlotRule{
				{Slot: 0, Cmp: Exactly, Option: 0}, // bedtime routine
				{Slot: 1, Cmp: AtMost, Option: 1},  // time to fall asleep
				{Slot: 2, Cmp: AtLeast, Option: 1}, // reason for staying up
			},
		},
		{
			Name:     "rhythm",
			Positive: "rhythmic",
			Negative: "jetlag",
			Rules: []SlotRule{
				{Slot: 5, Cmp: Exactly, Option: 0}, // wakes without alarm
				{Slot: 11, Cmp: AtMost, Option: 1}, // weekday/weekend gap
			},
		},
		{
			Name:     "recovery",
			Positive: "well-rested",
			Negative: "deprived",
			Rules: []SlotRule{
				{Slot: 7, Cmp: AtLeast, Option: 2}, // ideal sleep length
				{Slot: 12, Cmp: AtMost, Option: 1}, // satisfaction
				{Slot: 13, Cmp: AtMost, Option: 1}, // naps
			},
		},
	},
	Types: []ResultType{
		{Key: "morning-controlled-rhythmic-well-rested", Emoji: "🌞", Name: "아침 햇살 장인", Archetype: "ENTJ"},
		{Key: "morning-controlled-rhythmic-deprived", Emoji: "⏰", Name: "졸린 알람 파이터", Archetype: "ISFJ"},
		{Key: "morning-controlled-jetlag-well-rested", Emoji: "🛫", Name: "출근 모드 마스터", Archetype: "ENTJ"},
		{Key: "morning-controlled-jetlag-deprived", Emoji: "🥱", Name: "억지 부지런러", Archetype: "ISFJ"},

		{Key: "morning-free-rhythmic-well-rested", Emoji: "🐦", Name: "아침 산책러", Archetype: "ISFP"},
		{Key: "morning-free-rhythmic-deprived", Emoji: "😵", Name: "아침 비틀이", Archetype: "ENFP"},
		{Key: "morning-free-jetlag-well-rested", Emoji: "🌍", Name: "글로벌 얼리버드", Archetype: "ESFP"},
		{Key: "morning-free-jetlag-deprived", Emoji: "🙃", Name: "아침 좀비형", Archetype: "ENFP"},

		{Key: "night-controlled-rhythmic-well-rested", Emoji: "🌙", Name: "달빛 워커홀릭", Archetype: "ESTP"},
		{Key: "night-controlled-rhythmic-deprived", Emoji: "💼", Name: "야근형 부스터", Archetype: "ESTP"},
		{Key: "night-controlled-jetlag-well-rested", Emoji: "🛰️", Name: "밤의 글로벌러", Archetype: "ENTJ"},
		{Key: "night-controlled-jetlag-deprived", Emoji: "😵‍💫", Name: "늦밤 생존러", Archetype: "ISFJ"},

		{Key: "night-free-rhythmic-well-rested", Emoji: "🦉", Name: "새벽 감성러", Archetype: "INFJ"},
		{Key: "night-free-rhythmic-deprived", Emoji: "🥴", Name: "새벽 후회러", Archetype: "ENFP"},
		{Key: "night-free-jetlag-well-rested", Emoji: "🎨", Name: "밤의 크리에이터", Archetype: "INTP"},
		{Key: "night-free-jetlag-deprived", Emoji: "🔥", Name: "새벽 방황러", Archetype: "ENFP"},
	},
	Fallback: "수면 MBTI",
}
