package metrics

const namespace = "ced"
