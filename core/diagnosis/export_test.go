package diagnosis

var ExtractID = extractID
